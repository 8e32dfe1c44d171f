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

import "fmt"

// The four ways a raw packet can fail to become a well-formed Request.
// Each is fatal to the packet it occurred on: none carries enough
// information (in particular, no trustworthy unique ID) to send a
// reply, so Connection.ReadOp logs the failure, drops the packet without
// replying, and goes on to the next one.

type ShortReadHeaderError struct{ Len int }

func (e *ShortReadHeaderError) Error() string {
	return fmt.Sprintf("short read of header: got %d bytes", e.Len)
}

type UnknownOperationError struct{ Opcode uint32 }

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown FUSE opcode (%d)", e.Opcode)
}

type ShortReadError struct{ Len, Total int }

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read: got %d bytes, expected %d", e.Len, e.Total)
}

type InsufficientDataError struct{}

func (e *InsufficientDataError) Error() string {
	return "insufficient argument data"
}
