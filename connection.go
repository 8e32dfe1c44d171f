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
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/s1s5/gofuse/fuseops"
	"github.com/s1s5/gofuse/internal/buffer"
	"github.com/s1s5/gofuse/internal/freelist"
	"github.com/s1s5/gofuse/internal/fusekernel"
)

// Server is implemented by anything that can drive a Connection to
// completion, dispatching each op it reads to whatever answers it.
// fuseutil.NewFileSystemServer is the usual way to obtain one.
type Server interface {
	ServeOps(*Connection)
}

// Connection is a Channel wrapped with the FUSE wire protocol: it decodes
// kernel requests into fuseops.Op values and, once a FileSystem responds
// to one, encodes and writes the matching reply. It knows nothing about
// mount(2) or any platform-specific mount option string; see whatever
// package opened the underlying Channel for that.
type Connection struct {
	cfg         MountConfig
	debugLogger *log.Logger
	errorLogger *log.Logger

	channel  Channel
	protocol fusekernel.Protocol

	// initialized and destroyed are set at most once each, and read, only
	// by the goroutine calling ReadOp. Atomic loads/stores, not a mutex,
	// since there is never more than one writer.
	initialized uint32
	destroyed   uint32

	// writeMu serializes writes to the channel: replies to concurrently
	// dispatched ops race to call Write, and Channel makes no promise
	// that concurrent Writes don't interleave their bytes.
	writeMu sync.Mutex

	// poolMu guards inMessages, the freelist of InMessage buffers reused
	// across requests. There is no corresponding OutMessage pool: reply
	// payloads vary too much in size to make recycling a fixed buffer
	// worthwhile, and they are typically far smaller than the largest
	// possible request.
	poolMu     sync.Mutex
	inMessages freelist.Freelist
}

// NewConnection wraps channel in a Connection ready for ReadOp. A nil
// debugLogger or errorLogger falls back to the package's lazy -fuse.debug
// logger (see getLogger in debug.go), which writes to stderr when
// -fuse.debug is set and discards its output otherwise.
// No I/O happens until the first call to ReadOp.
func NewConnection(
	channel Channel,
	cfg MountConfig,
	debugLogger *log.Logger,
	errorLogger *log.Logger) *Connection {
	if debugLogger == nil {
		debugLogger = getLogger()
	}
	if errorLogger == nil {
		errorLogger = getLogger()
	}
	return &Connection{
		cfg:         cfg,
		debugLogger: debugLogger,
		errorLogger: errorLogger,
		channel:     channel,
	}
}

// initable is implemented by every fuseops.Op via its embedded commonOp.
// decodeOp hands back bare values; Init is what wires in the header,
// context, and reply sink that make them usable by a FileSystem.
type initable interface {
	Init(fuseops.OpHeader, context.Context, func(error))
}

func (c *Connection) getInMessage() *buffer.InMessage {
	c.poolMu.Lock()
	p := c.inMessages.Get()
	c.poolMu.Unlock()

	if p != nil {
		return (*buffer.InMessage)(p)
	}
	return buffer.NewInMessage()
}

func (c *Connection) putInMessage(m *buffer.InMessage) {
	c.poolMu.Lock()
	c.inMessages.Put(unsafe.Pointer(m))
	c.poolMu.Unlock()
}

// readMessage reads the next packet from the kernel, retrying past
// transient errors the way a raw read(2) against /dev/fuse can produce.
func (c *Connection) readMessage() (*buffer.InMessage, error) {
	m := c.getInMessage()

	for {
		err := m.Init(c.channel)

		// ENODEV means fuse has hung up; EINTR means try again. Channel
		// implementations backed by a *os.File surface both as a
		// *os.PathError, the same way a raw read(2) would.
		if pe, ok := err.(*os.PathError); ok {
			switch pe.Err {
			case syscall.ENODEV:
				err = io.EOF
			case syscall.EINTR:
				err = nil
				continue
			}
		}

		if err != nil {
			c.putInMessage(m)
			return nil, err
		}

		return m, nil
	}
}

// writeReply sends m to the kernel as the reply to fuseID, stamping in its
// header first.
func (c *Connection) writeReply(m *buffer.OutMessage, fuseID uint64, errno syscall.Errno) error {
	h := m.OutHeader()
	h.Len = uint32(m.Len())
	h.Error = -int32(errno)
	h.Unique = fuseID

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	n, err := c.channel.Write(m.Bytes())
	if err != nil {
		return err
	}
	if n != m.Len() {
		return fmt.Errorf("wrote %d bytes; expected %d", n, m.Len())
	}

	return nil
}

// replyErrno writes an empty-payload error reply.
func (c *Connection) replyErrno(fuseID uint64, errno syscall.Errno) {
	m := buffer.NewOutMessage(0)
	if err := c.writeReply(&m, fuseID, errno); err != nil && c.errorLogger != nil {
		c.errorLogger.Printf("Op 0x%08x] write reply: %v", fuseID, err)
	}
}

// debugLog logs a message about the op with the given fuse unique ID.
// calldepth is the depth to use when recovering file:line information
// with runtime.Caller.
func (c *Connection) debugLog(fuseID uint64, calldepth int, format string, v ...interface{}) {
	if c.debugLogger == nil {
		return
	}

	_, file, line, ok := runtime.Caller(calldepth)
	if !ok {
		file = "???"
	}
	fileLine := fmt.Sprintf("%v:%v", path.Base(file), line)

	c.debugLogger.Println(fmt.Sprintf(
		"Op 0x%08x %24s] %v", fuseID, fileLine, fmt.Sprintf(format, v...)))
}

// shortDesc renders op's description for logging, falling back to its Go
// type for anything that isn't a fuseops.Op (there shouldn't be any by the
// time this is called, but a bare %T beats a panic in a logging path).
func shortDesc(op interface{}) string {
	if o, ok := op.(fuseops.Op); ok {
		return o.ShortDesc()
	}
	return fmt.Sprintf("%T", op)
}

// shouldLogError skips errors that happen as a matter of course, since
// logging them spooks users for no reason.
func (c *Connection) shouldLogError(op interface{}, err error) bool {
	if err == nil || c.errorLogger == nil {
		return false
	}

	switch op.(type) {
	case *fuseops.LookUpInodeOp:
		// It is entirely normal for the kernel to ask to look up a name
		// that turns out not to exist, e.g. while linking a new file.
		if err == syscall.ENOENT {
			return false
		}
	case *fuseops.GetXattrOp, *fuseops.ListXattrOp:
		if err == syscall.ENOSYS || err == syscall.ENODATA || err == syscall.ERANGE {
			return false
		}
	case *fuseops.UnknownOp:
		// Don't bother the user about methods we intentionally don't
		// support.
		if err == syscall.ENOSYS {
			return false
		}
	}

	return true
}

// handleInit answers the INIT handshake inline: negotiate down to a
// protocol version and flag set both sides understand, then flip the
// connection into the initialized state. No FileSystem method is ever
// called for this opcode.
func (c *Connection) handleInit(hdr fusekernel.InHeader, op *fuseops.InitOp) {
	kernel := fusekernel.Protocol{Major: op.Kernel.Major, Minor: op.Kernel.Minor}

	if kernel.LT(fusekernel.MinProtocol) {
		c.replyErrno(hdr.Unique, syscall.EPROTO)
		if c.errorLogger != nil {
			c.errorLogger.Printf("Op 0x%08x INIT] kernel version too old: %v", hdr.Unique, kernel)
		}
		return
	}

	c.protocol = fusekernel.MaxProtocol
	if kernel.LT(c.protocol) {
		c.protocol = kernel
	}

	flags := uint32(fusekernel.SupportedFlags(runtime.GOOS)) & op.Flags
	if !c.cfg.EnableAsyncReads {
		flags &^= uint32(fusekernel.InitAsyncRead)
	}
	if c.cfg.DisableWritebackCaching {
		flags &^= uint32(fusekernel.InitWritebackCache)
	}
	if !c.cfg.EnableSymlinkCaching {
		flags &^= uint32(fusekernel.InitCacheSymlinks)
	}
	if !c.cfg.EnableNoOpenSupport {
		flags &^= uint32(fusekernel.InitNoOpenSupport)
	}
	if !c.cfg.EnableNoOpendirSupport {
		flags &^= uint32(fusekernel.InitNoOpendirSupport)
	}
	if !c.cfg.EnableParallelDirOps {
		flags &^= uint32(fusekernel.InitParallelDirOps)
	}
	if !c.cfg.EnableAtomicTrunc {
		flags &^= uint32(fusekernel.InitAtomicOTrunc)
	}
	if c.cfg.EnableReaddirplus && c.protocol.HasReaddirplus() {
		flags |= uint32(fusekernel.InitDoReaddirplus)
		if c.cfg.EnableAutoReaddirplus {
			flags |= uint32(fusekernel.InitReaddirplusAuto)
		}
	} else {
		flags &^= uint32(fusekernel.InitDoReaddirplus) | uint32(fusekernel.InitReaddirplusAuto)
	}

	size := unsafe.Sizeof(fusekernel.InitOut{})
	m := buffer.NewOutMessage(size)
	out := (*fusekernel.InitOut)(m.Grow(size))
	out.Major = c.protocol.Major
	out.Minor = c.protocol.Minor
	out.MaxReadahead = op.MaxReadahead
	out.Flags = flags
	out.MaxWrite = buffer.MaxWriteSize
	if c.protocol.HasCongestionControl() {
		out.MaxBackground = 32
		out.CongestionThreshold = 30
	}

	if err := c.writeReply(&m, hdr.Unique, 0); err != nil {
		if c.errorLogger != nil {
			c.errorLogger.Printf("Op 0x%08x INIT] write reply: %v", hdr.Unique, err)
		}
		return
	}

	atomic.StoreUint32(&c.initialized, 1)
	if c.debugLogger != nil {
		c.debugLog(hdr.Unique, 1, "-> Init(proto=%v, flags=%#x)", c.protocol, flags)
	}
}

// handleDestroy acknowledges DESTROY and flips the connection into the
// destroyed state. Every op read afterward, including a second DESTROY, is
// answered with EIO without ever reaching a FileSystem.
func (c *Connection) handleDestroy(hdr fusekernel.InHeader) {
	c.replyErrno(hdr.Unique, 0)
	atomic.StoreUint32(&c.destroyed, 1)
}

// ReadOp consumes the next op from the kernel, decoding and dispatching
// protocol-level requests (INIT, DESTROY) entirely within this call and
// returning the first op meant for a FileSystem. It returns io.EOF once
// the kernel has closed the connection.
//
// The caller must eventually call Respond on the returned op exactly
// once. ReadOp must not be called concurrently with itself; it delivers
// ops in exactly the order the kernel sent them.
func (c *Connection) ReadOp() (fuseops.Op, error) {
	for {
		inMsg, err := c.readMessage()
		if err != nil {
			return nil, err
		}

		hdr, ok := inMsg.Header()
		if !ok {
			if c.errorLogger != nil {
				c.errorLogger.Printf("short read of header: got %d bytes", inMsg.Len())
			}
			c.putInMessage(inMsg)
			continue
		}

		if inMsg.Len() < int(hdr.Len) {
			if c.errorLogger != nil {
				c.errorLogger.Printf(
					"Op 0x%08x %v] short read: got %d bytes, header claims %d",
					hdr.Unique, hdr.Opcode, inMsg.Len(), hdr.Len)
			}
			c.putInMessage(inMsg)
			continue
		}

		parsed, err := decodeOp(hdr, inMsg, c.protocol)
		if err != nil {
			if c.errorLogger != nil {
				c.errorLogger.Printf("Op 0x%08x %v] parse error: %v", hdr.Unique, hdr.Opcode, err)
			}
			c.putInMessage(inMsg)
			continue
		}

		if hdr.Opcode == fusekernel.OpInit && atomic.LoadUint32(&c.destroyed) == 0 {
			c.handleInit(hdr, parsed.op.(*fuseops.InitOp))
			c.putInMessage(inMsg)
			continue
		}

		if parsed.isDestroy && atomic.LoadUint32(&c.destroyed) == 0 {
			c.handleDestroy(hdr)
			c.putInMessage(inMsg)
			continue
		}

		if atomic.LoadUint32(&c.destroyed) != 0 {
			c.replyErrno(hdr.Unique, syscall.EIO)
			if c.errorLogger != nil {
				c.errorLogger.Printf("Op 0x%08x %v] received after DESTROY", hdr.Unique, hdr.Opcode)
			}
			c.putInMessage(inMsg)
			continue
		}
		if atomic.LoadUint32(&c.initialized) == 0 {
			c.replyErrno(hdr.Unique, syscall.EIO)
			if c.errorLogger != nil {
				c.errorLogger.Printf("Op 0x%08x %v] received before INIT", hdr.Unique, hdr.Opcode)
			}
			c.putInMessage(inMsg)
			continue
		}

		header := fuseops.OpHeader{
			InodeID: fuseops.InodeID(hdr.Nodeid),
			Uid:     hdr.Uid,
			Gid:     hdr.Gid,
			Pid:     hdr.Pid,
		}

		fuseID := hdr.Unique
		protocol := c.protocol
		localOp := parsed.op

		// FORGET and BATCH_FORGET carry no reply: the kernel does not
		// expect one, and the wire format has nowhere to put it.
		noReply := hdr.Opcode == fusekernel.OpForget || hdr.Opcode == fusekernel.OpBatchForget

		sendReply := func(replyErr error) {
			defer c.putInMessage(inMsg)

			if c.debugLogger != nil {
				if replyErr == nil {
					c.debugLog(fuseID, 1, "-> %s", shortDesc(localOp))
				} else {
					c.debugLog(fuseID, 1, "-> Error: %q", replyErr.Error())
				}
			}
			if c.shouldLogError(localOp, replyErr) {
				c.errorLogger.Printf("Op 0x%08x %T] -> Error: %q", fuseID, localOp, replyErr)
			}

			if noReply {
				return
			}

			en := errno(replyErr)
			var out buffer.OutMessage
			if replyErr == nil {
				out = encodeSuccess(localOp, protocol)
			} else {
				out = buffer.NewOutMessage(0)
			}

			if err := c.writeReply(&out, fuseID, en); err != nil && c.errorLogger != nil {
				c.errorLogger.Printf("Op 0x%08x] write reply: %v", fuseID, err)
			}
		}

		localOp.(initable).Init(header, c.cfg.opContext(), sendReply)
		op := localOp.(fuseops.Op)

		if c.debugLogger != nil {
			c.debugLog(fuseID, 1, "<- %s", shortDesc(op))
		}

		return op, nil
	}
}
