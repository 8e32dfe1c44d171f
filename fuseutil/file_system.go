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

// Package fuseutil provides a convenient typed dispatch layer on top of
// package fuse's raw Connection, plus small helpers (directory entry
// encoding, fallocate) that most filesystems need regardless of their own
// semantics.
package fuseutil

import (
	"flag"
	"io"
	"math/rand"
	"time"

	"github.com/s1s5/gofuse"
	"github.com/s1s5/gofuse/fuseops"
)

var fRandomDelays = flag.Bool(
	"fuseutil.random_delays", false,
	"If set, randomly delay each op received, to help expose concurrency bugs.")

// FileSystem has one method per fuseops Op type. Implementing it directly,
// rather than switching on op types by hand, is the idiomatic way to write
// a filesystem against this library.
//
// Each method is responsible for calling Respond on the op it is given,
// exactly once (possibly on another goroutine, possibly asynchronously).
// Embed NotImplementedFileSystem to pick up ENOSYS defaults for methods
// you don't care about.
type FileSystem interface {
	Init(*fuseops.InitOp)
	LookUpInode(*fuseops.LookUpInodeOp)
	GetInodeAttributes(*fuseops.GetInodeAttributesOp)
	SetInodeAttributes(*fuseops.SetInodeAttributesOp)
	ForgetInode(*fuseops.ForgetInodeOp)
	BatchForget(*fuseops.BatchForgetOp)

	MkDir(*fuseops.MkDirOp)
	MkNod(*fuseops.MkNodOp)
	CreateFile(*fuseops.CreateFileOp)
	CreateSymlink(*fuseops.CreateSymlinkOp)
	CreateLink(*fuseops.CreateLinkOp)

	Rename(*fuseops.RenameOp)
	RmDir(*fuseops.RmDirOp)
	Unlink(*fuseops.UnlinkOp)
	ReadSymlink(*fuseops.ReadSymlinkOp)

	OpenDir(*fuseops.OpenDirOp)
	ReadDir(*fuseops.ReadDirOp)
	ReleaseDirHandle(*fuseops.ReleaseDirHandleOp)

	OpenFile(*fuseops.OpenFileOp)
	ReadFile(*fuseops.ReadFileOp)
	WriteFile(*fuseops.WriteFileOp)
	SyncFile(*fuseops.SyncFileOp)
	FlushFile(*fuseops.FlushFileOp)
	ReleaseFileHandle(*fuseops.ReleaseFileHandleOp)
	Fallocate(*fuseops.FallocateOp)

	GetXattr(*fuseops.GetXattrOp)
	ListXattr(*fuseops.ListXattrOp)
	SetXattr(*fuseops.SetXattrOp)
	RemoveXattr(*fuseops.RemoveXattrOp)

	GetLk(*fuseops.GetLkOp)
	SetLk(*fuseops.SetLkOp)

	Access(*fuseops.AccessOp)
	Bmap(*fuseops.BmapOp)
	StatFS(*fuseops.StatFSOp)
}

// RespondToOp is a convenience for calling Respond with the current value
// of *err at the end of a method, e.g. via defer.
func RespondToOp(op fuseops.Op, err *error) {
	op.Respond(*err)
}

// NewFileSystemServer returns a fuse.Server that dispatches each op read
// from a Connection to the matching FileSystem method, one goroutine per
// op. Unrecognized op types (fuseops.UnknownOp) are answered with ENOSYS
// directly, without involving fs.
//
// It is safe to process ops concurrently: the kernel already serializes
// any operations whose order the user could observe.
func NewFileSystemServer(fs FileSystem) fuse.Server {
	return &fileSystemServer{fs: fs}
}

type fileSystemServer struct {
	fs FileSystem
}

func (s *fileSystemServer) ServeOps(c *fuse.Connection) {
	for {
		op, err := c.ReadOp()
		if err == io.EOF {
			return
		}
		if err != nil {
			panic(err)
		}

		go s.handleOp(op)
	}
}

func (s *fileSystemServer) handleOp(op fuseops.Op) {
	if *fRandomDelays {
		const delayLimit = 100 * time.Microsecond
		time.Sleep(time.Duration(rand.Int63n(int64(delayLimit))))
	}

	switch typed := op.(type) {
	default:
		op.Respond(fuse.ENOSYS)

	case *fuseops.InitOp:
		s.fs.Init(typed)
	case *fuseops.LookUpInodeOp:
		s.fs.LookUpInode(typed)
	case *fuseops.GetInodeAttributesOp:
		s.fs.GetInodeAttributes(typed)
	case *fuseops.SetInodeAttributesOp:
		s.fs.SetInodeAttributes(typed)
	case *fuseops.ForgetInodeOp:
		s.fs.ForgetInode(typed)
	case *fuseops.BatchForgetOp:
		s.fs.BatchForget(typed)

	case *fuseops.MkDirOp:
		s.fs.MkDir(typed)
	case *fuseops.MkNodOp:
		s.fs.MkNod(typed)
	case *fuseops.CreateFileOp:
		s.fs.CreateFile(typed)
	case *fuseops.CreateSymlinkOp:
		s.fs.CreateSymlink(typed)
	case *fuseops.CreateLinkOp:
		s.fs.CreateLink(typed)

	case *fuseops.RenameOp:
		s.fs.Rename(typed)
	case *fuseops.RmDirOp:
		s.fs.RmDir(typed)
	case *fuseops.UnlinkOp:
		s.fs.Unlink(typed)
	case *fuseops.ReadSymlinkOp:
		s.fs.ReadSymlink(typed)

	case *fuseops.OpenDirOp:
		s.fs.OpenDir(typed)
	case *fuseops.ReadDirOp:
		s.fs.ReadDir(typed)
	case *fuseops.ReleaseDirHandleOp:
		s.fs.ReleaseDirHandle(typed)

	case *fuseops.OpenFileOp:
		s.fs.OpenFile(typed)
	case *fuseops.ReadFileOp:
		s.fs.ReadFile(typed)
	case *fuseops.WriteFileOp:
		s.fs.WriteFile(typed)
	case *fuseops.SyncFileOp:
		s.fs.SyncFile(typed)
	case *fuseops.FlushFileOp:
		s.fs.FlushFile(typed)
	case *fuseops.ReleaseFileHandleOp:
		s.fs.ReleaseFileHandle(typed)
	case *fuseops.FallocateOp:
		s.fs.Fallocate(typed)

	case *fuseops.GetXattrOp:
		s.fs.GetXattr(typed)
	case *fuseops.ListXattrOp:
		s.fs.ListXattr(typed)
	case *fuseops.SetXattrOp:
		s.fs.SetXattr(typed)
	case *fuseops.RemoveXattrOp:
		s.fs.RemoveXattr(typed)

	case *fuseops.GetLkOp:
		s.fs.GetLk(typed)
	case *fuseops.SetLkOp:
		s.fs.SetLk(typed)

	case *fuseops.AccessOp:
		s.fs.Access(typed)
	case *fuseops.BmapOp:
		s.fs.Bmap(typed)
	case *fuseops.StatFSOp:
		s.fs.StatFS(typed)
	}
}
