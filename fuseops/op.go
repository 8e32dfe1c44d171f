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
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"syscall"
)

// OpHeader carries the fields common to every request: the inode it
// targets and the identity of the calling process.
type OpHeader struct {
	InodeID InodeID
	Uid     uint32
	Gid     uint32
	Pid     uint32
}

// Op is implemented by every request type in this package. Exactly one of
// Respond's calls per Op takes effect; later calls are ignored so that a
// filesystem cannot accidentally send two replies for one request.
type Op interface {
	// Header returns the fields common to all requests.
	Header() OpHeader

	// Context returns a context bound to the lifetime of the request. This
	// library does not implement interrupt delivery: the kernel may still
	// send an INTERRUPT for this request's unique ID, but it is decoded as
	// an ordinary op (see InterruptOp) rather than cancelling this context.
	Context() context.Context

	// Respond sends the reply to the kernel: an error reply if err is
	// non-nil, otherwise the operation's own success payload. Exactly one
	// call across the lifetime of the op has any effect.
	Respond(err error)

	// ShortDesc returns a short human-readable description of the
	// operation, for logging.
	ShortDesc() string
}

// commonOp is embedded in every concrete Op type. It carries the plumbing
// a generated Op needs to reply exactly once without exposing any of the
// wire-format machinery to filesystem authors.
type commonOp struct {
	header OpHeader
	ctx    context.Context

	// responded is flipped by the first call to Respond; subsequent calls
	// are silently ignored.
	responded uint32

	// sendReply is supplied by the dispatcher when the op is constructed.
	// It is responsible for encoding the op's success payload (read from
	// the concrete Op type via a closure) or an error reply, and writing
	// it to the kernel exactly once.
	sendReply func(err error)
}

// Init wires up the plumbing a freshly decoded op needs before it is
// handed to a FileSystem. It is exported so that package fuse, which
// decodes the wire format into these types, can finish constructing them
// without this package exposing its wire-format details back to fuse.
func (o *commonOp) Init(header OpHeader, ctx context.Context, sendReply func(err error)) {
	o.header = header
	o.ctx = ctx
	o.sendReply = sendReply

	// Guard against a FileSystem method that forgets to call Respond: if
	// this op is garbage collected unanswered, answer it with EIO rather
	// than leaving the kernel waiting on a request it will never see a
	// reply to. Relies on o being the concrete Op's first field, so the
	// finalizer set here fires when the whole Op becomes unreachable.
	runtime.SetFinalizer(o, (*commonOp).finalizeUnanswered)
}

func (o *commonOp) finalizeUnanswered() {
	if atomic.CompareAndSwapUint32(&o.responded, 0, 1) {
		o.sendReply(syscall.EIO)
	}
}

func (o *commonOp) Header() OpHeader { return o.header }

func (o *commonOp) Context() context.Context { return o.ctx }

func (o *commonOp) Respond(err error) {
	if !atomic.CompareAndSwapUint32(&o.responded, 0, 1) {
		return
	}
	runtime.SetFinalizer(o, nil)
	o.sendReply(err)
}

func (o *commonOp) ShortDesc() string {
	return fmt.Sprintf("inode=%v", o.header.InodeID)
}
