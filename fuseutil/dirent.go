// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuseutil

import (
	"unsafe"

	"github.com/s1s5/gofuse/fuseops"
)

// WriteDirent writes d into buf in the wire format expected in
// fuseops.ReadDirOp.Dst, returning the number of bytes written, or zero if
// the entry does not fit.
func WriteDirent(buf []byte, d fuseops.Dirent) (n int) {
	// fuse_dirent, 8-byte aligned per FUSE_DIRENT_ALIGN.
	type fuseDirent struct {
		ino     uint64
		off     uint64
		namelen uint32
		type_   uint32
	}

	const direntAlignment = 8
	const direntSize = 8 + 8 + 4 + 4

	var padLen int
	if len(d.Name)%direntAlignment != 0 {
		padLen = direntAlignment - (len(d.Name) % direntAlignment)
	}

	totalLen := direntSize + len(d.Name) + padLen
	if totalLen > len(buf) {
		return 0
	}

	de := fuseDirent{
		ino:     uint64(d.Inode),
		off:     uint64(d.Offset),
		namelen: uint32(len(d.Name)),
		type_:   uint32(d.Type),
	}

	n += copy(buf[n:], (*[direntSize]byte)(unsafe.Pointer(&de))[:])
	n += copy(buf[n:], d.Name)

	if padLen != 0 {
		var padding [direntAlignment]byte
		n += copy(buf[n:], padding[:padLen])
	}

	return n
}

// DirentWriter accumulates a directory listing into a fixed-size buffer,
// stopping as soon as an entry would overflow it. This is the budgeted
// variant of WriteDirent that ReadDir implementations build their reply
// with: each Add call either commits an entry or reports that the buffer
// is full, in which case the caller should return what it has and resume
// from the last committed entry's Offset on the next call.
type DirentWriter struct {
	buf []byte
	n   int
}

// NewDirentWriter wraps dst for incremental filling.
func NewDirentWriter(dst []byte) *DirentWriter {
	return &DirentWriter{buf: dst}
}

// Add attempts to append d, returning false if it would not fit.
func (w *DirentWriter) Add(d fuseops.Dirent) bool {
	n := WriteDirent(w.buf[w.n:], d)
	if n == 0 {
		return false
	}
	w.n += n
	return true
}

// Bytes returns the bytes written so far.
func (w *DirentWriter) Bytes() []byte {
	return w.buf[:w.n]
}
