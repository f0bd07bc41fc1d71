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

package main

import (
	"log"
	"os"

	"github.com/MrMebelMan/boardloader/internal/flash"
)

// hostPlatform implements boot.Platform on a host: board operations become
// log lines, the flash image file stands in for the part, and the
// non-returning primitives terminate the process.
type hostPlatform struct {
	dev            *flash.MemDevice
	path           string
	badOptionBytes bool
	capabilities   []byte
}

func (p *hostPlatform) ResetFlags() {
	log.Printf("reset flags cleared")
}

func (p *hostPlatform) ConfigureOptionBytes() bool {
	if p.badOptionBytes {
		log.Printf("option byte configuration failed")
		return false
	}
	return true
}

func (p *hostPlatform) ClearVolatileBuffers() {
	log.Printf("volatile buffers cleared")
}

func (p *hostPlatform) PublishCapabilities(block []byte) {
	p.capabilities = block
	log.Printf("capabilities block published (%d bytes)", len(block))
}

// Halt never returns.
func (p *hostPlatform) Halt(msg string) {
	log.Printf("HALT: %s", msg)
	p.save()
	os.Exit(1)
}

// HandOff never returns.
func (p *hostPlatform) HandOff(addr uint32) {
	log.Printf("handing off to bootloader @ %#08x", addr)
	p.save()
	os.Exit(0)
}

// save writes the flash contents back to the backing file, so that updates
// applied by the recovery flow survive across runs.
func (p *hostPlatform) save() {
	if p.path == "" {
		return
	}
	if err := saveFlash(p.dev, p.path); err != nil {
		log.Printf("could not save flash image, %v", err)
	}
}
