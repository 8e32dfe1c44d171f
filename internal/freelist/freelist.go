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

// Package freelist implements a simple, externally-synchronized pool of
// reusable buffers, keyed by nothing more than an unsafe.Pointer. It
// exists so that Connection can recycle InMessage values across requests
// without allocating one per op.
package freelist

import "unsafe"

// Freelist is a LIFO stack of previously-returned pointers. The zero value
// is ready to use. Callers are responsible for their own synchronization;
// this type does no locking of its own.
type Freelist struct {
	items []unsafe.Pointer
}

// Get removes and returns the most recently Put pointer, or nil if the
// list is empty.
func (f *Freelist) Get() unsafe.Pointer {
	n := len(f.items)
	if n == 0 {
		return nil
	}

	p := f.items[n-1]
	f.items = f.items[:n-1]
	return p
}

// Put returns p to the list for reuse by a later Get.
func (f *Freelist) Put(p unsafe.Pointer) {
	f.items = append(f.items, p)
}
