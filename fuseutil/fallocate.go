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

package fuseutil

import (
	"os"

	"github.com/detailyang/go-fallocate"
)

// PreallocateRange is a convenience for filesystems backed by a real
// os.File that want to satisfy a FallocateOp by pre-allocating disk space,
// using the platform-appropriate syscall rather than writing zeroes by
// hand.
func PreallocateRange(f *os.File, offset, length int64) error {
	return fallocate.Fallocate(f, offset, length)
}
