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

package fuseops

import (
	"fmt"
	"time"
)

////////////////////////////////////////////////////////////////////////
// Initialization
////////////////////////////////////////////////////////////////////////

// InitOp is the very first op on a connection. The dispatcher answers it
// directly as part of protocol negotiation and never hands it to a
// FileSystem, so FileSystem.Init is not called for it.
type InitOp struct {
	commonOp

	Kernel struct{ Major, Minor uint32 }

	// Flags is the capability bitmask the kernel advertised with this
	// request. The dispatcher negotiates the subset it intends to honor
	// before replying; a FileSystem's Init never sees or alters it.
	Flags uint32

	Library      struct{ Major, Minor uint32 }
	MaxReadahead uint32
	MaxWrite     uint32
}

func (o *InitOp) ShortDesc() string {
	return fmt.Sprintf("Init(kernel=%d.%d)", o.Kernel.Major, o.Kernel.Minor)
}

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

type LookUpInodeOp struct {
	commonOp
	Parent InodeID
	Name   string
	Entry  ChildInodeEntry
}

func (o *LookUpInodeOp) ShortDesc() string {
	return fmt.Sprintf("LookUpInode(parent=%v, name=%q)", o.Parent, o.Name)
}

type GetInodeAttributesOp struct {
	commonOp
	Inode                InodeID
	Attributes           InodeAttributes
	AttributesExpiration time.Time
}

func (o *GetInodeAttributesOp) ShortDesc() string {
	return fmt.Sprintf("GetInodeAttributes(inode=%v)", o.Inode)
}

// SetInodeAttributesOp requests attribute changes. Only fields whose
// pointer is non-nil were requested by the kernel; the dispatcher derives
// this from the SETATTR request's valid bitmask.
type SetInodeAttributesOp struct {
	commonOp
	Inode InodeID

	Size  *uint64
	Mode  *uint32
	Uid   *uint32
	Gid   *uint32
	Atime *time.Time
	Mtime *time.Time

	// Fh is set when the kernel's valid bitmask carries FATTR_FH: the
	// request was made against an open file handle (e.g. ftruncate)
	// rather than a path, which some filesystems use to pick the inode's
	// writer without re-resolving it.
	Fh *uint64

	// Darwin extensions, set only when the kernel's valid bitmask carries
	// the corresponding FATTR_CRTIME/FLAGS bit. The FATTR_CHGTIME and
	// FATTR_BKUPTIME bits are not decoded and have no field here.
	Crtime *time.Time
	Flags  *uint32

	Attributes           InodeAttributes
	AttributesExpiration time.Time
}

func (o *SetInodeAttributesOp) ShortDesc() string {
	return fmt.Sprintf("SetInodeAttributes(inode=%v)", o.Inode)
}

// ForgetInodeOp tells the filesystem the kernel has dropped its reference
// to Inode by N lookups; no reply is sent to the kernel for this op.
type ForgetInodeOp struct {
	commonOp
	Inode InodeID
	N     uint64
}

func (o *ForgetInodeOp) ShortDesc() string {
	return fmt.Sprintf("ForgetInode(inode=%v, n=%d)", o.Inode, o.N)
}

// BatchForgetEntry is one entry of a BatchForgetOp.
type BatchForgetEntry struct {
	Inode InodeID
	N     uint64
}

// BatchForgetOp is the batched form of ForgetInodeOp; like ForgetInodeOp,
// no reply is sent.
type BatchForgetOp struct {
	commonOp
	Entries []BatchForgetEntry
}

func (o *BatchForgetOp) ShortDesc() string {
	return fmt.Sprintf("BatchForget(n=%d)", len(o.Entries))
}

////////////////////////////////////////////////////////////////////////
// Inode creation
////////////////////////////////////////////////////////////////////////

type MkDirOp struct {
	commonOp
	Parent InodeID
	Name   string
	Mode   uint32
	Entry  ChildInodeEntry
}

func (o *MkDirOp) ShortDesc() string {
	return fmt.Sprintf("MkDir(parent=%v, name=%q)", o.Parent, o.Name)
}

type MkNodOp struct {
	commonOp
	Parent InodeID
	Name   string
	Mode   uint32
	Rdev   uint32
	Entry  ChildInodeEntry
}

func (o *MkNodOp) ShortDesc() string {
	return fmt.Sprintf("MkNode(parent=%v, name=%q)", o.Parent, o.Name)
}

type CreateFileOp struct {
	commonOp
	Parent InodeID
	Name   string
	Mode   uint32
	Flags  uint32
	Entry  ChildInodeEntry
	Handle HandleID
}

func (o *CreateFileOp) ShortDesc() string {
	return fmt.Sprintf("CreateFile(parent=%v, name=%q)", o.Parent, o.Name)
}

type CreateSymlinkOp struct {
	commonOp
	Parent InodeID
	Name   string
	Target string
	Entry  ChildInodeEntry
}

func (o *CreateSymlinkOp) ShortDesc() string {
	return fmt.Sprintf("CreateSymlink(parent=%v, name=%q, target=%q)", o.Parent, o.Name, o.Target)
}

type CreateLinkOp struct {
	commonOp
	Parent InodeID
	Name   string
	Target InodeID
	Entry  ChildInodeEntry
}

func (o *CreateLinkOp) ShortDesc() string {
	return fmt.Sprintf("CreateLink(parent=%v, name=%q, target=%v)", o.Parent, o.Name, o.Target)
}

////////////////////////////////////////////////////////////////////////
// Unlinking, renaming
////////////////////////////////////////////////////////////////////////

type RenameOp struct {
	commonOp
	OldParent InodeID
	OldName   string
	NewParent InodeID
	NewName   string
}

func (o *RenameOp) ShortDesc() string {
	return fmt.Sprintf("Rename(%v/%q -> %v/%q)", o.OldParent, o.OldName, o.NewParent, o.NewName)
}

type RmDirOp struct {
	commonOp
	Parent InodeID
	Name   string
}

func (o *RmDirOp) ShortDesc() string {
	return fmt.Sprintf("RmDir(parent=%v, name=%q)", o.Parent, o.Name)
}

type UnlinkOp struct {
	commonOp
	Parent InodeID
	Name   string
}

func (o *UnlinkOp) ShortDesc() string {
	return fmt.Sprintf("Unlink(parent=%v, name=%q)", o.Parent, o.Name)
}

////////////////////////////////////////////////////////////////////////
// Symlinks
////////////////////////////////////////////////////////////////////////

type ReadSymlinkOp struct {
	commonOp
	Inode  InodeID
	Target string
}

////////////////////////////////////////////////////////////////////////
// Directory handles
////////////////////////////////////////////////////////////////////////

type OpenDirOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
}

type ReadDirOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
	Offset DirOffset

	// Dst is the caller-owned destination buffer; the filesystem fills it
	// with encoded dirents via fuseutil.WriteDirent and sets
	// BytesRead to how much it wrote.
	Dst       []byte
	BytesRead int
}

type ReleaseDirHandleOp struct {
	commonOp
	Handle HandleID
}

////////////////////////////////////////////////////////////////////////
// File handles
////////////////////////////////////////////////////////////////////////

type OpenFileOp struct {
	commonOp
	Inode  InodeID
	Flags  uint32
	Handle HandleID
	// KeepPageCache tells the kernel it may keep cached pages for this
	// inode across this open, rather than invalidating them.
	KeepPageCache bool
}

type ReadFileOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
	Offset int64

	Dst       []byte
	BytesRead int
}

type WriteFileOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
	Offset int64
	Data   []byte
}

func (o *WriteFileOp) ShortDesc() string {
	return fmt.Sprintf("WriteFile(inode=%v, offset=%d, n=%d)", o.Inode, o.Offset, len(o.Data))
}

type SyncFileOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID

	// Datasync is true when the kernel only needs file data synced
	// (fdatasync(2)), not metadata as well (fsync(2)).
	Datasync bool
}

type FlushFileOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
}

type ReleaseFileHandleOp struct {
	commonOp
	Handle HandleID

	// Flush is true when the release was triggered by close(2) rather
	// than the last reference to the handle simply being dropped.
	Flush bool
}

type FallocateOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
	Offset uint64
	Length uint64
	Mode   uint32
}

////////////////////////////////////////////////////////////////////////
// Extended attributes
////////////////////////////////////////////////////////////////////////

type GetXattrOp struct {
	commonOp
	Inode InodeID
	Name  string
	Dst   []byte

	// BytesRead is the number of bytes of Dst the filesystem filled. If
	// Dst has zero length, the filesystem should instead set Size to the
	// value Read would need.
	BytesRead int
	Size      uint32
}

type ListXattrOp struct {
	commonOp
	Inode     InodeID
	Dst       []byte
	BytesRead int
	Size      uint32
}

type RemoveXattrOp struct {
	commonOp
	Inode InodeID
	Name  string
}

type SetXattrOp struct {
	commonOp
	Inode InodeID
	Name  string
	Value []byte
	Flags uint32
}

////////////////////////////////////////////////////////////////////////
// Locking
////////////////////////////////////////////////////////////////////////

type GetLkOp struct {
	commonOp
	Inode  InodeID
	Handle HandleID
	Lock   FileLock
}

type SetLkOp struct {
	commonOp
	Inode    InodeID
	Handle   HandleID
	Lock     FileLock
	Blocking bool
}

// FileLock mirrors the byte-range lock struct exchanged in LkIn/LkOut.
type FileLock struct {
	Start uint64
	End   uint64
	Type  FileLockType
	Pid   uint32
}

////////////////////////////////////////////////////////////////////////
// Misc
////////////////////////////////////////////////////////////////////////

type AccessOp struct {
	commonOp
	Inode InodeID
	Mask  uint32
}

type BmapOp struct {
	commonOp
	Inode     InodeID
	BlockSize uint32
	Block     uint64
	// PhysicalBlock is the filesystem's answer, the physical block number.
	PhysicalBlock uint64
}

type StatFSOp struct {
	commonOp
}

// InterruptOp reports that the kernel no longer cares about the result of
// the request with unique ID FuseID. This library does not implement
// interrupt delivery or cancellation: the referenced request's context is
// not cancelled, and InterruptOp itself flows through the ordinary
// dispatch path like any other op (a FileSystem with no Interrupt case
// simply answers ENOSYS).
type InterruptOp struct {
	commonOp
	FuseID uint64
}

// UnknownOp is a sentinel delivered for an opcode this library recognizes
// but does not decode (ioctl, poll, notify reply, CUSE init, the
// macFUSE-only opcodes). An opcode it does not recognize at all is
// dropped by the Connection without a reply. A FileSystem is expected to
// respond with ENOSYS.
type UnknownOp struct {
	commonOp
	OpCode uint32
}

func (o *UnknownOp) ShortDesc() string {
	return fmt.Sprintf("<opcode %d>(inode=%v)", o.OpCode, o.Header().InodeID)
}
