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

import "io"

// Channel is the kernel communication endpoint a Connection reads
// requests from and writes replies to. It is deliberately abstract: this
// package does not open /dev/fuse or issue the mount(2) syscall. A Read
// error that is an *os.PathError wrapping EINTR is retried, and one
// wrapping ENODEV is reported as io.EOF. A caller obtains a Channel by
// whatever platform-specific means it likes (an opened device file, a
// socketpair used in tests, ...) and hands it to NewConnection.
//
// Each call to Read must return exactly one complete kernel request, the
// same guarantee a single read(2) against /dev/fuse provides. Write must
// send exactly one complete reply per call.
type Channel interface {
	io.Reader
	io.Writer
	io.Closer
}
