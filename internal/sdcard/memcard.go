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

package sdcard

import (
	"errors"
	"fmt"
)

// MemCard is an in-memory Card backed by a byte slice, used for host runs
// and tests. Reads past the end of Data return zeroes, like a freshly
// formatted card.
type MemCard struct {
	Data []byte

	// Size overrides the reported capacity; zero reports the smallest
	// multiple of MinCapacity that holds Data.
	Size uint64

	// Absent simulates an empty slot: every PowerOn fails.
	Absent bool
	// RemoveAfter, when positive, makes the card absent after that many
	// successful PowerOn calls, simulating removal mid-flow.
	RemoveAfter int

	powered  bool
	powerOns int
}

// PowerOn implements Card.
func (c *MemCard) PowerOn() error {
	if c.Absent {
		return errors.New("no card present")
	}
	if c.RemoveAfter > 0 && c.powerOns >= c.RemoveAfter {
		return errors.New("card removed")
	}
	c.powerOns++
	c.powered = true
	return nil
}

// PowerOff implements Card.
func (c *MemCard) PowerOff() {
	c.powered = false
}

// Capacity implements Card.
func (c *MemCard) Capacity() (uint64, error) {
	if !c.powered {
		return 0, errors.New("card not powered")
	}
	if c.Size != 0 {
		return c.Size, nil
	}
	n := uint64(len(c.Data))
	if r := n % MinCapacity; r != 0 || n == 0 {
		n += MinCapacity - r
	}
	return n, nil
}

// ReadBlocks implements Card.
func (c *MemCard) ReadBlocks(lba int, buf []byte) error {
	if !c.powered {
		return errors.New("card not powered")
	}
	if len(buf)%BlockSize != 0 {
		return fmt.Errorf("read length %d not a block multiple", len(buf))
	}

	start := lba * BlockSize
	for i := range buf {
		buf[i] = 0
		if start+i < len(c.Data) {
			buf[i] = c.Data[start+i]
		}
	}
	return nil
}
