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

import "context"

// MountConfig controls how a Connection negotiates the FUSE protocol with
// the kernel during INIT. It has no knowledge of mount(2) or any
// platform-specific mount option string; that belongs to whatever code
// opens the Channel this package is handed.
type MountConfig struct {
	// OpContext is the parent context for every op's Context(). Defaults to
	// context.Background() if nil.
	OpContext context.Context

	// EnableAsyncReads tells the kernel it may issue concurrent READ
	// requests for the same handle.
	EnableAsyncReads bool

	// DisableWritebackCaching turns off the kernel's writeback cache for
	// this mount, trading performance for stricter write-through semantics.
	DisableWritebackCaching bool

	// EnableSymlinkCaching is consulted during INIT, but the CACHE_SYMLINKS
	// flag is not in the set this package negotiates, so the kernel is
	// never told it may cache symlink targets whatever this is set to.
	EnableSymlinkCaching bool

	// EnableNoOpenSupport tells the kernel it need not call OpenFile at all
	// for inodes the filesystem is happy to serve reads/writes against
	// without a handle.
	EnableNoOpenSupport bool

	// EnableNoOpendirSupport is the OpenDir analogue of EnableNoOpenSupport.
	EnableNoOpendirSupport bool

	// EnableParallelDirOps allows the kernel to issue concurrent lookups
	// and readdirs against one directory.
	EnableParallelDirOps bool

	// EnableAtomicTrunc lets CreateFile handle O_TRUNC atomically.
	EnableAtomicTrunc bool

	// EnableReaddirplus lets the kernel use READDIRPLUS, which returns
	// entry attributes inline with the listing.
	EnableReaddirplus bool

	// EnableAutoReaddirplus lets the kernel adaptively choose between
	// READDIR and READDIRPLUS. Only consulted if EnableReaddirplus is set.
	EnableAutoReaddirplus bool
}

func (c *MountConfig) opContext() context.Context {
	if c.OpContext != nil {
		return c.OpContext
	}
	return context.Background()
}
