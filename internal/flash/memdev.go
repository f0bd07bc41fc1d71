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

package flash

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultGeometry returns the sector sizes of the supported part: two banks
// of 4×16 KiB + 1×64 KiB + 7×128 KiB.
func DefaultGeometry() []int {
	bank := []int{
		16 * 1024, 16 * 1024, 16 * 1024, 16 * 1024,
		64 * 1024,
		128 * 1024, 128 * 1024, 128 * 1024, 128 * 1024,
		128 * 1024, 128 * 1024, 128 * 1024,
	}
	return append(append([]int{}, bank...), bank...)
}

// MemDevice is an in-memory flash device. It enforces the lock discipline
// and NOR write semantics (programming only clears bits, each word is read
// back after programming), which makes it a faithful stand-in for the real
// driver in host runs and tests.
type MemDevice struct {
	sectors  [][]byte
	unlocked bool

	// FailWriteAt, when set, makes the word write at (sector, offset) leave
	// the cell unprogrammed so that verification fails. Test hook.
	FailWriteAt func(sector int, offset uint32) bool
	// OnErase is called after each successful sector erase. Test hook.
	OnErase func(sector int)
	// OnWriteWord is called after each successful word write. Test hook.
	OnWriteWord func(sector int, offset uint32)
}

// NewMemDevice returns a device with the given sector sizes, all sectors in
// the erased (0xFF) state.
func NewMemDevice(geometry []int) *MemDevice {
	d := &MemDevice{sectors: make([][]byte, len(geometry))}
	for i, size := range geometry {
		d.sectors[i] = make([]byte, size)
		d.eraseSector(i)
	}
	return d
}

func (d *MemDevice) sector(sector int) ([]byte, error) {
	if sector < 0 || sector >= len(d.sectors) {
		return nil, fmt.Errorf("sector %d out of range (device has %d)", sector, len(d.sectors))
	}
	return d.sectors[sector], nil
}

func (d *MemDevice) eraseSector(sector int) {
	for i := range d.sectors[sector] {
		d.sectors[sector][i] = 0xff
	}
}

// Unlock implements Device.
func (d *MemDevice) Unlock() error {
	if d.unlocked {
		return errors.New("flash already unlocked")
	}
	d.unlocked = true
	return nil
}

// Lock implements Device.
func (d *MemDevice) Lock() error {
	d.unlocked = false
	return nil
}

// EraseSector implements Device.
func (d *MemDevice) EraseSector(sector int) error {
	if _, err := d.sector(sector); err != nil {
		return err
	}
	if !d.unlocked {
		return errors.New("flash locked")
	}
	d.eraseSector(sector)
	if d.OnErase != nil {
		d.OnErase(sector)
	}
	return nil
}

// WriteWord implements Device. Like the hardware, programming can only clear
// bits; the word is read back afterwards and a mismatch is an error.
func (d *MemDevice) WriteWord(sector int, offset uint32, word uint32) error {
	s, err := d.sector(sector)
	if err != nil {
		return err
	}
	if !d.unlocked {
		return errors.New("flash locked")
	}
	if offset%4 != 0 || int(offset)+4 > len(s) {
		return fmt.Errorf("offset %#x invalid for sector %d", offset, sector)
	}

	if d.FailWriteAt == nil || !d.FailWriteAt(sector, offset) {
		cur := binary.LittleEndian.Uint32(s[offset:])
		binary.LittleEndian.PutUint32(s[offset:], cur&word)
	}

	if got := binary.LittleEndian.Uint32(s[offset:]); got != word {
		return fmt.Errorf("verification failed at sector %d offset %#x: wrote %#08x, read %#08x",
			sector, offset, word, got)
	}
	if d.OnWriteWord != nil {
		d.OnWriteWord(sector, offset)
	}
	return nil
}

// Bytes implements Device, returning a copy of the sector contents.
func (d *MemDevice) Bytes(sector int) ([]byte, error) {
	s, err := d.sector(sector)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(s))
	copy(out, s)
	return out, nil
}

// LoadSector overwrites a sector's contents directly, bypassing the lock
// discipline. It exists for seeding a device from a stored flash image.
func (d *MemDevice) LoadSector(sector int, b []byte) error {
	s, err := d.sector(sector)
	if err != nil {
		return err
	}
	if len(b) > len(s) {
		return fmt.Errorf("%d bytes exceed sector %d size %d", len(b), sector, len(s))
	}
	d.eraseSector(sector)
	copy(s, b)
	return nil
}

// NumSectors returns the number of sectors in the device.
func (d *MemDevice) NumSectors() int {
	return len(d.sectors)
}
