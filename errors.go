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

import "syscall"

// Errors corresponding to kernel error numbers. A FileSystem method may
// return any syscall.Errno; these are the ones the dispatcher itself uses
// or that filesystems reach for most often.
const (
	EIO       = syscall.EIO
	ENOENT    = syscall.ENOENT
	ENOSYS    = syscall.ENOSYS
	ENOTEMPTY = syscall.ENOTEMPTY
	EPROTO    = syscall.EPROTO
	EINVAL    = syscall.EINVAL
)

// errno extracts the wire error number to send to the kernel for err. A
// nil error is a successful reply; any non-nil error that isn't already a
// syscall.Errno is reported as EIO, since the kernel has no way to
// represent an arbitrary Go error.
func errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}
