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
	"reflect"
	"unsafe"

	"github.com/s1s5/gofuse/internal/fusekernel"
)

// OutMessageHeaderSize is the size of the leading header present in every
// OutMessage.
const OutMessageHeaderSize = int(unsafe.Sizeof(fusekernel.OutHeader{}))

// OutMessage assembles a single reply: a fusekernel.OutHeader followed by
// whatever payload the operation's response schema calls for. It
// guarantees the message is never sent with a length that disagrees with
// its actual contents, since Len and Bytes always derive from the same
// backing slice.
//
// The zero value is not ready for use; call NewOutMessage.
type OutMessage struct {
	buf []byte
}

// NewOutMessage creates an OutMessage with its header zeroed and room to
// grow by extra more bytes without reallocating.
func NewOutMessage(extra uintptr) OutMessage {
	return OutMessage{buf: make([]byte, OutMessageHeaderSize, uintptr(OutMessageHeaderSize)+extra)}
}

// OutHeader returns a pointer into the message's own storage; writes
// through it are reflected in Bytes.
func (m *OutMessage) OutHeader() *fusekernel.OutHeader {
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&m.buf))
	return (*fusekernel.OutHeader)(unsafe.Pointer(sh.Data))
}

// Grow extends the message by n bytes, zeroed, and returns a pointer to
// the start of the new segment.
func (m *OutMessage) Grow(n uintptr) unsafe.Pointer {
	start := len(m.buf)
	m.buf = append(m.buf, make([]byte, n)...)
	return unsafe.Pointer(&m.buf[start])
}

// Append copies src onto the end of the message.
func (m *OutMessage) Append(src []byte) {
	m.buf = append(m.buf, src...)
}

// AppendString is like Append, but accepts string input.
func (m *OutMessage) AppendString(src string) {
	m.buf = append(m.buf, src...)
}

// PutStruct appends a copy of v's in-memory representation to the message.
// v must not contain any pointers: it is serialized as raw bytes in
// native host order, matching the kernel wire format.
func PutStruct[T any](m *OutMessage, v T) {
	n := int(unsafe.Sizeof(v))
	p := m.Grow(uintptr(n))
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), n)
	copy(unsafe.Slice((*byte)(p), n), src)
}

// Len returns the current size of the message, including the header.
func (m *OutMessage) Len() int {
	return len(m.buf)
}

// Bytes returns a reference to the current contents of the message,
// including the header.
func (m *OutMessage) Bytes() []byte {
	return m.buf
}
