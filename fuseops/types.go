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

// Package fuseops defines the user-facing representation of FUSE
// operations: one Go type per kernel request, decoded from the wire
// format and carrying a Respond method that encodes and sends exactly one
// reply.
package fuseops

import (
	"fmt"
	"os"
	"time"
)

// InodeID uniquely identifies a live inode to the kernel for the lifetime
// of its lookup count. RootInodeID is always valid and never forgotten.
type InodeID uint64

const RootInodeID InodeID = 1

func (i InodeID) String() string {
	return fmt.Sprintf("%#x", uint64(i))
}

// HandleID identifies an open file or directory handle, chosen by the
// filesystem when it is opened and echoed back by the kernel on every
// subsequent operation against that handle.
type HandleID uint64

// DirOffset is an opaque cookie identifying a position within a directory
// listing. The only guarantee is that handing the same offset back to
// ReadDir resumes the listing after the entry it was returned with; the
// numeric value carries no meaning of its own.
type DirOffset uint64

// InodeAttributes mirrors the subset of a stat(2) result that FUSE
// round-trips to the kernel's inode and attribute caches.
type InodeAttributes struct {
	Size   uint64
	Nlink  uint32
	Mode   os.FileMode
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
	Crtime time.Time
	Uid    uint32
	Gid    uint32
}

func (a InodeAttributes) DebugString() string {
	return fmt.Sprintf(
		"%v %v %v (owner %d:%d)",
		a.Mode, a.Size, a.Mtime, a.Uid, a.Gid)
}

// ChildInodeEntry is the response a filesystem gives for operations that
// create or look up a directory entry: enough for the kernel to populate
// its dentry and inode caches.
type ChildInodeEntry struct {
	Child                InodeID
	Generation           uint64
	Attributes           InodeAttributes
	AttributesExpiration time.Time
	EntryExpiration      time.Time
}

// DirentType mirrors the handful of d_type values the kernel cares about
// when rendering a directory listing.
type DirentType uint32

const (
	DT_Unknown  DirentType = 0
	DT_Socket   DirentType = 12
	DT_Link     DirentType = 10
	DT_File     DirentType = 8
	DT_Block    DirentType = 6
	DT_Dir      DirentType = 4
	DT_Char     DirentType = 2
	DT_FIFO     DirentType = 1
)

// Dirent is a single entry returned from ReadDir.
type Dirent struct {
	Offset DirOffset
	Inode  InodeID
	Name   string
	Type   DirentType
}

// FileLockType mirrors the three lock states the kernel can ask about or
// set via GETLK/SETLK/SETLKW.
type FileLockType uint32

const (
	ReadLock   FileLockType = 0
	WriteLock  FileLockType = 1
	UnlockType FileLockType = 2
)
