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

package fuse

import (
	"time"
	"unsafe"

	"github.com/s1s5/gofuse/fuseops"
	"github.com/s1s5/gofuse/internal/buffer"
	"github.com/s1s5/gofuse/internal/fusekernel"
)

// destroyRequest is not used by decodeOp, which reports OpDestroy through
// parsedOp.isDestroy instead. Destroy is handled entirely by the
// dispatcher: a successful, empty reply is sent immediately and no
// FileSystem method is invoked.
type destroyRequest struct{}

// parsedOp is what decodeOp hands back: either a ready-to-Init fuseops.Op,
// or the destroy sentinel the dispatcher special-cases before a
// FileSystem ever sees it. INTERRUPT decodes to an ordinary
// *fuseops.InterruptOp and flows through the normal steady-state path:
// this library does not implement interrupt delivery (see InterruptOp),
// so FileSystem's default handling of it (ENOSYS) is exactly the
// behavior wanted.
type parsedOp struct {
	op        any
	isDestroy bool
}

// decodeOp consumes m's argument payload according to hdr.Opcode's
// schema and returns the corresponding fuseops.Op, not yet Init'd with a
// header/context/reply sink. It never consults or mutates Connection
// state; everything it needs is either in hdr, in m, or in the
// negotiated protocol.
func decodeOp(hdr fusekernel.InHeader, m *buffer.InMessage, protocol fusekernel.Protocol) (parsedOp, error) {
	switch hdr.Opcode {
	case fusekernel.OpInit:
		in, ok := buffer.Consume[fusekernel.InitIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		op := &fuseops.InitOp{}
		op.Kernel.Major = in.Major
		op.Kernel.Minor = in.Minor
		op.MaxReadahead = in.MaxReadahead
		op.Flags = in.Flags
		return parsedOp{op: op}, nil

	case fusekernel.OpLookup:
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.LookUpInodeOp{Parent: fuseops.InodeID(hdr.Nodeid), Name: name}}, nil

	case fusekernel.OpForget:
		in, ok := buffer.Consume[fusekernel.ForgetIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ForgetInodeOp{Inode: fuseops.InodeID(hdr.Nodeid), N: in.Nlookup}}, nil

	case fusekernel.OpBatchForget:
		in, ok := buffer.Consume[fusekernel.BatchForgetIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		// in.Count is the declared entry count, but the buffer's actual
		// length governs: a short buffer just yields fewer entries rather
		// than a parse failure, matching how the kernel's own encoder is
		// tolerant of the two disagreeing. Cap the preallocation at what m
		// could actually hold so a bogus huge Count can't force a giant
		// up-front allocation.
		maxEntries := uint32(m.Remaining() / int(unsafe.Sizeof(fusekernel.ForgetOne{})))
		capHint := in.Count
		if maxEntries < capHint {
			capHint = maxEntries
		}
		entries := make([]fuseops.BatchForgetEntry, 0, capHint)
		for i := uint32(0); i < in.Count; i++ {
			one, ok := buffer.Consume[fusekernel.ForgetOne](m)
			if !ok {
				break
			}
			entries = append(entries, fuseops.BatchForgetEntry{Inode: fuseops.InodeID(one.Nodeid), N: one.Nlookup})
		}
		return parsedOp{op: &fuseops.BatchForgetOp{Entries: entries}}, nil

	case fusekernel.OpGetattr:
		if _, ok := buffer.Consume[fusekernel.GetattrIn](m); !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.GetInodeAttributesOp{Inode: fuseops.InodeID(hdr.Nodeid)}}, nil

	case fusekernel.OpSetattr:
		in, ok := buffer.Consume[fusekernel.SetattrIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		op := &fuseops.SetInodeAttributesOp{Inode: fuseops.InodeID(hdr.Nodeid)}
		if in.Valid&fusekernel.FattrSize != 0 {
			v := in.Size
			op.Size = &v
		}
		if in.Valid&fusekernel.FattrMode != 0 {
			v := in.Mode
			op.Mode = &v
		}
		if in.Valid&fusekernel.FattrUID != 0 {
			v := in.Uid
			op.Uid = &v
		}
		if in.Valid&fusekernel.FattrGID != 0 {
			v := in.Gid
			op.Gid = &v
		}
		if in.Valid&fusekernel.FattrFh != 0 {
			v := in.Fh
			op.Fh = &v
		}
		if in.Valid&fusekernel.FattrAtime != 0 {
			v := time.Unix(int64(in.Atime), int64(in.AtimeNsec))
			op.Atime = &v
		}
		if in.Valid&fusekernel.FattrMtime != 0 {
			v := time.Unix(int64(in.Mtime), int64(in.MtimeNsec))
			op.Mtime = &v
		}
		if in.Valid&fusekernel.FattrCrtime != 0 {
			v := time.Unix(int64(in.Crtime), int64(in.CrtimeNsec))
			op.Crtime = &v
		}
		if in.Valid&fusekernel.FattrFlags != 0 {
			v := in.Flags
			op.Flags = &v
		}
		return parsedOp{op: op}, nil

	case fusekernel.OpMknod:
		in, ok := buffer.Consume[fusekernel.MknodIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.MkNodOp{
			Parent: fuseops.InodeID(hdr.Nodeid),
			Name:   name,
			Mode:   in.Mode,
			Rdev:   in.Rdev,
		}}, nil

	case fusekernel.OpMkdir:
		in, ok := buffer.Consume[fusekernel.MkdirIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.MkDirOp{Parent: fuseops.InodeID(hdr.Nodeid), Name: name, Mode: in.Mode}}, nil

	case fusekernel.OpSymlink:
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		target, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.CreateSymlinkOp{Parent: fuseops.InodeID(hdr.Nodeid), Name: name, Target: target}}, nil

	case fusekernel.OpLink:
		in, ok := buffer.Consume[fusekernel.LinkIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.CreateLinkOp{
			Parent: fuseops.InodeID(hdr.Nodeid),
			Name:   name,
			Target: fuseops.InodeID(in.Oldnodeid),
		}}, nil

	case fusekernel.OpUnlink:
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.UnlinkOp{Parent: fuseops.InodeID(hdr.Nodeid), Name: name}}, nil

	case fusekernel.OpRmdir:
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.RmDirOp{Parent: fuseops.InodeID(hdr.Nodeid), Name: name}}, nil

	case fusekernel.OpRename:
		in, ok := buffer.Consume[fusekernel.RenameIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		oldName, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		newName, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.RenameOp{
			OldParent: fuseops.InodeID(hdr.Nodeid),
			OldName:   oldName,
			NewParent: fuseops.InodeID(in.Newdir),
			NewName:   newName,
		}}, nil

	case fusekernel.OpReadlink:
		return parsedOp{op: &fuseops.ReadSymlinkOp{Inode: fuseops.InodeID(hdr.Nodeid)}}, nil

	case fusekernel.OpOpen:
		in, ok := buffer.Consume[fusekernel.OpenIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.OpenFileOp{Inode: fuseops.InodeID(hdr.Nodeid), Flags: in.Flags}}, nil

	case fusekernel.OpOpendir:
		if _, ok := buffer.Consume[fusekernel.OpenIn](m); !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.OpenDirOp{Inode: fuseops.InodeID(hdr.Nodeid)}}, nil

	case fusekernel.OpRead:
		in, ok := buffer.Consume[fusekernel.ReadIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if in.Size > buffer.MaxWriteSize {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ReadFileOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
			Offset: int64(in.Offset),
			Dst:    make([]byte, in.Size),
		}}, nil

	case fusekernel.OpReaddir:
		in, ok := buffer.Consume[fusekernel.ReadIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if in.Size > buffer.MaxWriteSize {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ReadDirOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
			Offset: fuseops.DirOffset(in.Offset),
			Dst:    make([]byte, in.Size),
		}}, nil

	case fusekernel.OpWrite:
		in, ok := buffer.Consume[fusekernel.WriteIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if uint32(m.Remaining()) != in.Size {
			return parsedOp{}, &InsufficientDataError{}
		}
		data := m.ConsumeBytes(int(in.Size))
		return parsedOp{op: &fuseops.WriteFileOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
			Offset: int64(in.Offset),
			Data:   data,
		}}, nil

	case fusekernel.OpRelease:
		in, ok := buffer.Consume[fusekernel.ReleaseIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ReleaseFileHandleOp{
			Handle: fuseops.HandleID(in.Fh),
			Flush:  in.ReleaseFlags&fusekernel.ReleaseFlush != 0,
		}}, nil

	case fusekernel.OpReleasedir:
		in, ok := buffer.Consume[fusekernel.ReleaseIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ReleaseDirHandleOp{Handle: fuseops.HandleID(in.Fh)}}, nil

	case fusekernel.OpFsync, fusekernel.OpFsyncdir:
		in, ok := buffer.Consume[fusekernel.FsyncIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.SyncFileOp{
			Inode:    fuseops.InodeID(hdr.Nodeid),
			Handle:   fuseops.HandleID(in.Fh),
			Datasync: in.FsyncFlags&fusekernel.FsyncFdatasync != 0,
		}}, nil

	case fusekernel.OpFlush:
		in, ok := buffer.Consume[fusekernel.ReleaseIn](m) // same shape: fh + padding/lock_owner
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.FlushFileOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
		}}, nil

	case fusekernel.OpStatfs:
		return parsedOp{op: &fuseops.StatFSOp{}}, nil

	case fusekernel.OpSetxattr:
		in, ok := buffer.Consume[fusekernel.SetxattrIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if uint32(m.Remaining()) != in.Size {
			return parsedOp{}, &InsufficientDataError{}
		}
		value := m.ConsumeBytes(int(in.Size))
		return parsedOp{op: &fuseops.SetXattrOp{
			Inode: fuseops.InodeID(hdr.Nodeid),
			Name:  name,
			Value: value,
			Flags: in.Flags,
		}}, nil

	case fusekernel.OpGetxattr:
		in, ok := buffer.Consume[fusekernel.GetxattrIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if in.Size > buffer.MaxWriteSize {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.GetXattrOp{
			Inode: fuseops.InodeID(hdr.Nodeid),
			Name:  name,
			Dst:   make([]byte, in.Size),
		}}, nil

	case fusekernel.OpListxattr:
		in, ok := buffer.Consume[fusekernel.GetxattrIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		if in.Size > buffer.MaxWriteSize {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.ListXattrOp{
			Inode: fuseops.InodeID(hdr.Nodeid),
			Dst:   make([]byte, in.Size),
		}}, nil

	case fusekernel.OpRemovexattr:
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.RemoveXattrOp{Inode: fuseops.InodeID(hdr.Nodeid), Name: name}}, nil

	case fusekernel.OpAccess:
		in, ok := buffer.Consume[fusekernel.AccessIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.AccessOp{Inode: fuseops.InodeID(hdr.Nodeid), Mask: in.Mask}}, nil

	case fusekernel.OpCreate:
		in, ok := buffer.Consume[fusekernel.CreateIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		name, ok := m.ConsumeCString()
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.CreateFileOp{
			Parent: fuseops.InodeID(hdr.Nodeid),
			Name:   name,
			Mode:   in.Mode,
			Flags:  in.Flags,
		}}, nil

	case fusekernel.OpInterrupt:
		in, ok := buffer.Consume[fusekernel.InterruptIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.InterruptOp{FuseID: in.Unique}}, nil

	case fusekernel.OpBmap:
		in, ok := buffer.Consume[fusekernel.BmapIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.BmapOp{
			Inode:     fuseops.InodeID(hdr.Nodeid),
			BlockSize: in.Blocksize,
			Block:     in.Block,
		}}, nil

	case fusekernel.OpDestroy:
		return parsedOp{isDestroy: true}, nil

	case fusekernel.OpGetlk:
		in, ok := buffer.Consume[fusekernel.LkIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.GetLkOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
			Lock:   convertFileLock(in.Lk),
		}}, nil

	case fusekernel.OpSetlk, fusekernel.OpSetlkw:
		in, ok := buffer.Consume[fusekernel.LkIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.SetLkOp{
			Inode:    fuseops.InodeID(hdr.Nodeid),
			Handle:   fuseops.HandleID(in.Fh),
			Lock:     convertFileLock(in.Lk),
			Blocking: hdr.Opcode == fusekernel.OpSetlkw,
		}}, nil

	case fusekernel.OpFallocate:
		in, ok := buffer.Consume[fusekernel.FallocateIn](m)
		if !ok {
			return parsedOp{}, &InsufficientDataError{}
		}
		return parsedOp{op: &fuseops.FallocateOp{
			Inode:  fuseops.InodeID(hdr.Nodeid),
			Handle: fuseops.HandleID(in.Fh),
			Offset: in.Offset,
			Length: in.Length,
			Mode:   in.Mode,
		}}, nil

	default:
		if !hdr.Opcode.Known() {
			return parsedOp{}, &UnknownOperationError{Opcode: uint32(hdr.Opcode)}
		}
		// Recognized but intentionally unimplemented (ioctl, poll, notify
		// reply, macFUSE-only ops, ...): still reply-able, just with ENOSYS.
		m.ConsumeRemaining()
		return parsedOp{op: &fuseops.UnknownOp{OpCode: uint32(hdr.Opcode)}}, nil
	}
}

func convertFileLock(lk fusekernel.FileLock) fuseops.FileLock {
	return fuseops.FileLock{
		Start: lk.Start,
		End:   lk.End,
		Type:  fuseops.FileLockType(lk.Type),
		Pid:   lk.Pid,
	}
}
