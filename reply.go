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
	"os"
	"syscall"
	"time"
	"unsafe"

	"github.com/s1s5/gofuse/fuseops"
	"github.com/s1s5/gofuse/internal/buffer"
	"github.com/s1s5/gofuse/internal/fusekernel"
)

// encodeSuccess builds the success-reply payload for op, following the
// opcode-specific response schema in §6 of the wire format. FORGET and
// BATCH_FORGET never reach here: the dispatcher sends no reply for them.
// An INTERRUPT answered with a nil error gets an empty payload.
func encodeSuccess(op interface{}, protocol fusekernel.Protocol) buffer.OutMessage {
	switch o := op.(type) {
	case *fuseops.LookUpInodeOp:
		size := fusekernel.EntryOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.EntryOut)(b.Grow(size))
		convertChildInodeEntry(&o.Entry, out)
		return b

	case *fuseops.GetInodeAttributesOp:
		size := fusekernel.AttrOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.AttrOut)(b.Grow(size))
		out.AttrValid, out.AttrValidNsec = convertExpirationTime(o.AttributesExpiration)
		convertAttributes(o.Inode, &o.Attributes, &out.Attr)
		return b

	case *fuseops.SetInodeAttributesOp:
		size := fusekernel.AttrOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.AttrOut)(b.Grow(size))
		out.AttrValid, out.AttrValidNsec = convertExpirationTime(o.AttributesExpiration)
		convertAttributes(o.Inode, &o.Attributes, &out.Attr)
		return b

	case *fuseops.MkDirOp:
		size := fusekernel.EntryOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.EntryOut)(b.Grow(size))
		convertChildInodeEntry(&o.Entry, out)
		return b

	case *fuseops.MkNodOp:
		size := fusekernel.EntryOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.EntryOut)(b.Grow(size))
		convertChildInodeEntry(&o.Entry, out)
		return b

	case *fuseops.CreateFileOp:
		eSize := fusekernel.EntryOutSize(protocol)
		oSize := unsafe.Sizeof(fusekernel.OpenOut{})
		b := buffer.NewOutMessage(eSize + oSize)
		e := (*fusekernel.EntryOut)(b.Grow(eSize))
		convertChildInodeEntry(&o.Entry, e)
		oo := (*fusekernel.OpenOut)(b.Grow(oSize))
		oo.Fh = uint64(o.Handle)
		return b

	case *fuseops.CreateSymlinkOp:
		size := fusekernel.EntryOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.EntryOut)(b.Grow(size))
		convertChildInodeEntry(&o.Entry, out)
		return b

	case *fuseops.CreateLinkOp:
		size := fusekernel.EntryOutSize(protocol)
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.EntryOut)(b.Grow(size))
		convertChildInodeEntry(&o.Entry, out)
		return b

	case *fuseops.ReadSymlinkOp:
		b := buffer.NewOutMessage(uintptr(len(o.Target)))
		b.AppendString(o.Target)
		return b

	case *fuseops.OpenDirOp:
		size := unsafe.Sizeof(fusekernel.OpenOut{})
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.OpenOut)(b.Grow(size))
		out.Fh = uint64(o.Handle)
		return b

	case *fuseops.ReadDirOp:
		b := buffer.NewOutMessage(uintptr(o.BytesRead))
		b.Append(o.Dst[:o.BytesRead])
		return b

	case *fuseops.OpenFileOp:
		size := unsafe.Sizeof(fusekernel.OpenOut{})
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.OpenOut)(b.Grow(size))
		out.Fh = uint64(o.Handle)
		if o.KeepPageCache {
			out.OpenFlags |= fusekernel.OpenKeepCache
		}
		return b

	case *fuseops.ReadFileOp:
		b := buffer.NewOutMessage(uintptr(o.BytesRead))
		b.Append(o.Dst[:o.BytesRead])
		return b

	case *fuseops.WriteFileOp:
		size := unsafe.Sizeof(fusekernel.WriteOut{})
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.WriteOut)(b.Grow(size))
		out.Size = uint32(len(o.Data))
		return b

	case *fuseops.GetXattrOp:
		if len(o.Dst) == 0 {
			size := unsafe.Sizeof(fusekernel.GetxattrOut{})
			b := buffer.NewOutMessage(size)
			out := (*fusekernel.GetxattrOut)(b.Grow(size))
			out.Size = o.Size
			return b
		}
		b := buffer.NewOutMessage(uintptr(o.BytesRead))
		b.Append(o.Dst[:o.BytesRead])
		return b

	case *fuseops.ListXattrOp:
		if len(o.Dst) == 0 {
			size := unsafe.Sizeof(fusekernel.GetxattrOut{})
			b := buffer.NewOutMessage(size)
			out := (*fusekernel.GetxattrOut)(b.Grow(size))
			out.Size = o.Size
			return b
		}
		b := buffer.NewOutMessage(uintptr(o.BytesRead))
		b.Append(o.Dst[:o.BytesRead])
		return b

	case *fuseops.GetLkOp:
		size := unsafe.Sizeof(fusekernel.LkOut{})
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.LkOut)(b.Grow(size))
		out.Lk = fusekernel.FileLock{
			Start: o.Lock.Start,
			End:   o.Lock.End,
			Type:  uint32(o.Lock.Type),
			Pid:   o.Lock.Pid,
		}
		return b

	case *fuseops.BmapOp:
		size := unsafe.Sizeof(fusekernel.BmapOut{})
		b := buffer.NewOutMessage(size)
		out := (*fusekernel.BmapOut)(b.Grow(size))
		out.Block = o.PhysicalBlock
		return b

	case *fuseops.StatFSOp:
		size := unsafe.Sizeof(fusekernel.StatfsOut{})
		b := buffer.NewOutMessage(size)
		b.Grow(size)
		return b

	// Ack-only: no payload beyond the reply header.
	case *fuseops.RenameOp, *fuseops.RmDirOp, *fuseops.UnlinkOp,
		*fuseops.ReleaseDirHandleOp, *fuseops.SyncFileOp, *fuseops.FlushFileOp,
		*fuseops.ReleaseFileHandleOp, *fuseops.SetXattrOp, *fuseops.RemoveXattrOp,
		*fuseops.AccessOp, *fuseops.SetLkOp, *fuseops.FallocateOp:
		return buffer.NewOutMessage(0)

	default:
		return buffer.NewOutMessage(0)
	}
}

// convertExpirationTime splits the duration between now and t into the
// (seconds, nanoseconds) pair the kernel expects for cache validity
// fields. A t in the past yields zero, meaning "do not cache".
func convertExpirationTime(t time.Time) (sec uint64, nsec uint32) {
	d := time.Until(t)
	if d < 0 {
		return 0, 0
	}
	sec = uint64(d / time.Second)
	nsec = uint32(d % time.Second)
	return sec, nsec
}

// convertAttributes fills out with the wire representation of attr,
// translating its os.FileMode into the raw S_IFxxx-tagged mode word the
// kernel expects.
func convertAttributes(inode fuseops.InodeID, attr *fuseops.InodeAttributes, out *fusekernel.Attr) {
	out.Ino = uint64(inode)
	out.Size = attr.Size
	out.Blocks = (attr.Size + 511) / 512
	out.Mode = unixMode(attr.Mode)
	out.Nlink = attr.Nlink
	out.Uid = attr.Uid
	out.Gid = attr.Gid

	out.Atime, out.Atimensec = secNsec(attr.Atime)
	out.Mtime, out.Mtimensec = secNsec(attr.Mtime)
	out.Ctime, out.Ctimensec = secNsec(attr.Ctime)
	out.Crtime, out.Crtimensec = secNsec(attr.Crtime)
}

func convertChildInodeEntry(e *fuseops.ChildInodeEntry, out *fusekernel.EntryOut) {
	out.Nodeid = uint64(e.Child)
	out.Generation = e.Generation
	out.EntryValid, out.EntryValidNsec = convertExpirationTime(e.EntryExpiration)
	out.AttrValid, out.AttrValidNsec = convertExpirationTime(e.AttributesExpiration)
	convertAttributes(e.Child, &e.Attributes, &out.Attr)
}

func secNsec(t time.Time) (sec uint64, nsec uint32) {
	if t.IsZero() {
		return 0, 0
	}
	return uint64(t.Unix()), uint32(t.Nanosecond())
}

// unixMode translates a Go os.FileMode into the raw mode word (S_IFMT bits
// plus permission and set-uid/gid/sticky bits) the kernel's attr struct
// carries on the wire.
func unixMode(mode os.FileMode) uint32 {
	m := uint32(mode.Perm())

	switch {
	case mode&os.ModeDir != 0:
		m |= syscall.S_IFDIR
	case mode&os.ModeSymlink != 0:
		m |= syscall.S_IFLNK
	case mode&os.ModeNamedPipe != 0:
		m |= syscall.S_IFIFO
	case mode&os.ModeSocket != 0:
		m |= syscall.S_IFSOCK
	case mode&os.ModeDevice != 0:
		if mode&os.ModeCharDevice != 0 {
			m |= syscall.S_IFCHR
		} else {
			m |= syscall.S_IFBLK
		}
	default:
		m |= syscall.S_IFREG
	}

	if mode&os.ModeSetuid != 0 {
		m |= syscall.S_ISUID
	}
	if mode&os.ModeSetgid != 0 {
		m |= syscall.S_ISGID
	}
	if mode&os.ModeSticky != 0 {
		m |= syscall.S_ISVTX
	}

	return m
}
