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

package buffer

import (
	"io"
	"unsafe"

	"github.com/s1s5/gofuse/internal/fusekernel"
)

// InHeaderSize is the size in bytes of the fixed header every request
// begins with.
const InHeaderSize = int(unsafe.Sizeof(fusekernel.InHeader{}))

// InMessage is an incoming packet read from the kernel, including its
// leading fusekernel.InHeader. It is the argument cursor described by this
// package: callers consume the argument payload one fixed-size struct,
// NUL-terminated string, or remaining byte run at a time, in the exact
// order the operation's schema specifies.
//
// An InMessage owns the storage for a single packet. It is not safe for
// concurrent use, but is cheap to reset and reuse across reads via a
// freelist.
type InMessage struct {
	buf []byte
	off int
}

// NewInMessage allocates an InMessage with enough backing storage for the
// largest packet this library will ever read.
func NewInMessage() *InMessage {
	return &InMessage{buf: make([]byte, MaxReadSize)}
}

// Init reads a single packet from r, discarding any previous contents, and
// resets the cursor to the start of the packet. Once Header has been
// called, the first call to Consume/ConsumeBytes/ConsumeCString consumes
// the bytes immediately following the fusekernel.InHeader.
func (m *InMessage) Init(r io.Reader) error {
	n, err := r.Read(m.buf[:cap(m.buf)])
	if err != nil {
		return err
	}

	m.buf = m.buf[:n]
	m.off = 0

	return nil
}

// Len returns the total number of bytes read in the most recent Init,
// including the header.
func (m *InMessage) Len() int {
	return len(m.buf)
}

// Header returns the request header, or false if fewer bytes were read
// than a header requires. On success it moves the cursor to the first
// byte past the header, unless the cursor is already beyond it.
func (m *InMessage) Header() (h fusekernel.InHeader, ok bool) {
	if len(m.buf) < InHeaderSize {
		return h, false
	}

	copyInto(unsafe.Pointer(&h), m.buf[:InHeaderSize])
	if m.off < InHeaderSize {
		m.off = InHeaderSize
	}

	return h, true
}

// Remaining returns the number of unconsumed bytes left in the message.
func (m *InMessage) Remaining() int {
	return len(m.buf) - m.off
}

// Consume copies the next n bytes of the message into freshly allocated,
// naturally aligned storage of type T and advances the cursor past them.
// It reports false if fewer than n bytes remain.
func Consume[T any](m *InMessage) (out T, ok bool) {
	n := int(unsafe.Sizeof(out))
	if m.Remaining() < n {
		return out, false
	}

	copyInto(unsafe.Pointer(&out), m.buf[m.off:m.off+n])
	m.off += n

	return out, true
}

// ConsumeBytes returns the next n bytes of the message as a slice backed
// by the message's own storage, without copying, and advances the cursor.
// The result is nil if fewer than n bytes remain.
func (m *InMessage) ConsumeBytes(n int) []byte {
	if m.Remaining() < n {
		return nil
	}

	b := m.buf[m.off : m.off+n]
	m.off += n

	return b
}

// ConsumeCString consumes a NUL-terminated string from the message,
// returning a copy of it without the trailing NUL. It reports
// false if no NUL byte is found among the remaining bytes.
func (m *InMessage) ConsumeCString() (s string, ok bool) {
	rest := m.buf[m.off:]
	for i, c := range rest {
		if c == 0 {
			s = string(rest[:i])
			m.off += i + 1
			return s, true
		}
	}

	return "", false
}

// ConsumeRemaining returns every unconsumed byte left in the message,
// without copying, and advances the cursor to the end.
func (m *InMessage) ConsumeRemaining() []byte {
	b := m.buf[m.off:]
	m.off = len(m.buf)
	return b
}

// copyInto copies len(src) bytes into the naturally-aligned storage at dst.
// Used instead of a raw pointer cast so that callers never dereference a
// potentially misaligned pointer into the message's own buffer.
func copyInto(dst unsafe.Pointer, src []byte) {
	d := unsafe.Slice((*byte)(dst), len(src))
	copy(d, src)
}
