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

package fuse_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"sync"
	"syscall"
	"testing"

	"github.com/jacobsa/syncutil"

	"github.com/s1s5/gofuse"
	"github.com/s1s5/gofuse/fuseops"
	"github.com/s1s5/gofuse/internal/fusekernel"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
)

func TestConnection(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// A Channel backed by an in-memory queue of complete packets
////////////////////////////////////////////////////////////////////////

// fakeChannel satisfies fuse.Channel without touching /dev/fuse: each
// pushed []byte is delivered whole by a single Read, matching the
// contract Channel documents. Replies written by the Connection are
// captured for inspection.
type fakeChannel struct {
	mu      sync.Mutex
	packets [][]byte
	replies [][]byte
	closed  bool
}

func (f *fakeChannel) push(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packets = append(f.packets, b)
}

func (f *fakeChannel) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.packets) == 0 {
		return 0, io.EOF
	}

	b := f.packets[0]
	f.packets = f.packets[1:]
	return copy(p, b), nil
}

func (f *fakeChannel) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := append([]byte(nil), p...)
	f.replies = append(f.replies, cp)
	return len(p), nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) replyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

func (f *fakeChannel) replyErrno(i int) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.replies[i]
	return int32(h[4]) | int32(h[5])<<8 | int32(h[6])<<16 | int32(h[7])<<24
}

////////////////////////////////////////////////////////////////////////
// Packet construction helpers
////////////////////////////////////////////////////////////////////////

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func packet(opcode fusekernel.Opcode, unique uint64, nodeid uint64, payload []byte) []byte {
	b := make([]byte, buffer_InHeaderSize)
	putU32(b[0:4], uint32(buffer_InHeaderSize+len(payload)))
	putU32(b[4:8], uint32(opcode))
	putU64(b[8:16], unique)
	putU64(b[16:24], nodeid)
	return append(b, payload...)
}

// buffer_InHeaderSize mirrors internal/buffer.InHeaderSize without
// importing the internal package from an external test.
const buffer_InHeaderSize = 40

func initPayload(major, minor, maxReadahead, flags uint32) []byte {
	b := make([]byte, 16)
	putU32(b[0:4], major)
	putU32(b[4:8], minor)
	putU32(b[8:12], maxReadahead)
	putU32(b[12:16], flags)
	return b
}

func getattrPayload() []byte {
	return make([]byte, 16) // fusekernel.GetattrIn
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

type ConnectionTest struct {
	channel     *fakeChannel
	errBuf      bytes.Buffer
	errorLogger *log.Logger
	conn        *fuse.Connection
}

func init() { RegisterTestSuite(&ConnectionTest{}) }

func (t *ConnectionTest) SetUp(ti *TestInfo) {
	t.channel = &fakeChannel{}
	t.errorLogger = log.New(&t.errBuf, "", 0)
	t.conn = fuse.NewConnection(t.channel, fuse.MountConfig{}, nil, t.errorLogger)
}

func (t *ConnectionTest) handshake() {
	t.channel.push(packet(fusekernel.OpInit, 1, 0, initPayload(7, 31, 0, 0)))
}

func (t *ConnectionTest) ShortHeaderIsSkippedAndLogged() {
	t.channel.push([]byte{1, 2, 3})
	t.handshake()
	t.channel.push(packet(fusekernel.OpGetattr, 2, 1, getattrPayload()))

	op, err := t.conn.ReadOp()
	AssertEq(nil, err)
	_, ok := op.(*fuseops.GetInodeAttributesOp)
	AssertTrue(ok, "got %T", op)
	ExpectThat(t.errBuf.String(), HasSubstr("short read of header"))
}

func (t *ConnectionTest) InitNegotiatesAndAcksWithZeroErrno() {
	t.handshake()
	t.channel.push(packet(fusekernel.OpGetattr, 2, 1, getattrPayload()))

	op, err := t.conn.ReadOp()
	AssertEq(nil, err)
	_, ok := op.(*fuseops.GetInodeAttributesOp)
	AssertTrue(ok, "got %T", op)

	AssertEq(1, t.channel.replyCount())
	ExpectEq(int32(0), t.channel.replyErrno(0))
}

func (t *ConnectionTest) VersionTooOldIsRejectedWithEPROTO() {
	t.channel.push(packet(fusekernel.OpInit, 1, 0, initPayload(6, 0, 0, 0)))

	_, err := t.conn.ReadOp()
	AssertEq(io.EOF, err)

	AssertEq(1, t.channel.replyCount())
	ExpectEq(-int32(syscall.EPROTO), t.channel.replyErrno(0))
	ExpectThat(t.errBuf.String(), HasSubstr("version too old"))
}

func (t *ConnectionTest) OpsBeforeInitAreRejectedWithEIO() {
	t.channel.push(packet(fusekernel.OpGetattr, 1, 1, getattrPayload()))

	_, err := t.conn.ReadOp()
	AssertEq(io.EOF, err)

	AssertEq(1, t.channel.replyCount())
	ExpectEq(-int32(syscall.EIO), t.channel.replyErrno(0))
	ExpectThat(t.errBuf.String(), HasSubstr("before INIT"))
}

func (t *ConnectionTest) OpsAfterDestroyAreRejectedWithEIO() {
	t.handshake()
	t.channel.push(packet(fusekernel.OpDestroy, 2, 0, nil))
	t.channel.push(packet(fusekernel.OpGetattr, 3, 1, getattrPayload()))

	_, err := t.conn.ReadOp()
	AssertEq(io.EOF, err)

	AssertEq(3, t.channel.replyCount())
	ExpectEq(int32(0), t.channel.replyErrno(0))            // INIT ack
	ExpectEq(int32(0), t.channel.replyErrno(1))            // DESTROY ack
	ExpectEq(-int32(syscall.EIO), t.channel.replyErrno(2)) // post-destroy GETATTR
}

// Connection does not special-case INTERRUPT: no delivery is implemented,
// so it decodes like any other op and is handed to whatever the caller's
// dispatch layer does with it (fuseutil.FileSystem's default case
// answers ENOSYS; this test plays that role directly).
func (t *ConnectionTest) InterruptDecodesAsAnOrdinaryReplyableOp() {
	t.handshake()
	interruptPayload := make([]byte, 8)
	putU64(interruptPayload, 99)
	t.channel.push(packet(fusekernel.OpInterrupt, 2, 0, interruptPayload))

	op, err := t.conn.ReadOp()
	AssertEq(nil, err)

	interruptOp, ok := op.(*fuseops.InterruptOp)
	AssertTrue(ok, "got %T", op)
	ExpectEq(uint64(99), interruptOp.FuseID)

	AssertEq(1, t.channel.replyCount()) // only the INIT ack so far
	op.Respond(fuse.ENOSYS)
	AssertEq(2, t.channel.replyCount())
	ExpectEq(-int32(syscall.ENOSYS), t.channel.replyErrno(1))
}

// RespondIsExactlyOnce exercises the exactly-once reply guarantee under
// concurrent callers, the way a FileSystem method racing with itself (or
// with the finalizer safety net) would.
func (t *ConnectionTest) RespondIsExactlyOnce() {
	t.handshake()
	t.channel.push(packet(fusekernel.OpGetattr, 2, 1, getattrPayload()))

	op, err := t.conn.ReadOp()
	AssertEq(nil, err)

	const numCallers = 16
	b := syncutil.NewBundle(context.Background())
	for i := 0; i < numCallers; i++ {
		b.Add(func(ctx context.Context) error {
			op.Respond(fuse.EIO)
			return nil
		})
	}
	AssertEq(nil, b.Join())

	AssertEq(2, t.channel.replyCount()) // INIT ack + the one GETATTR reply
}
