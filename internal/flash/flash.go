// Copyright 2025 The Boardloader Authors. All Rights Reserved.
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

// Package flash sequences erase and write operations against the internal
// flash, with unconditional protection of the running stage's own sectors.
//
// The raw driver primitives are consumed through the Device interface and
// are not implemented here; MemDevice provides a software device for host
// runs and tests.
package flash

// Device is the raw flash driver consumed by the update engine.
type Device interface {
	// Unlock enables erase and word writes until Lock is called.
	Unlock() error
	// Lock disables erase and writes.
	Lock() error
	// EraseSector erases one physical sector.
	EraseSector(sector int) error
	// WriteWord programs a 32-bit word at a byte offset within a sector and
	// verifies the programmed value. A verification failure is an error.
	WriteWord(sector int, offset uint32, word uint32) error
	// Bytes returns the current contents of a sector.
	Bytes(sector int) ([]byte, error)
}

// ProgressSink receives erase and write progress notifications so that a
// user can judge device responsiveness during long operations.
// Implementations must be cheap; they run between individual flash
// operations.
type ProgressSink interface {
	// EraseProgress reports that done of total sectors have been erased.
	EraseProgress(done, total int)
	// WriteProgress reports that done of total units have been written.
	WriteProgress(done, total int)
}

type nopSink struct{}

func (nopSink) EraseProgress(done, total int) {}
func (nopSink) WriteProgress(done, total int) {}

func sinkOrNop(s ProgressSink) ProgressSink {
	if s == nil {
		return nopSink{}
	}
	return s
}
