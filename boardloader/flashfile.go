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
	"fmt"
	"os"

	"github.com/MrMebelMan/boardloader/internal/flash"
)

// loadFlash seeds the device from a raw flash image file: the sectors'
// contents concatenated in index order. A short file leaves the remaining
// sectors erased; a missing file is a blank device.
func loadFlash(dev *flash.MemDevice, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	off := 0
	for s := 0; s < dev.NumSectors() && off < len(data); s++ {
		b, err := dev.Bytes(s)
		if err != nil {
			return err
		}
		end := off + len(b)
		if end > len(data) {
			end = len(data)
		}
		if err := dev.LoadSector(s, data[off:end]); err != nil {
			return fmt.Errorf("sector %d: %w", s, err)
		}
		off = end
	}

	return nil
}

// saveFlash writes the device contents back out as a raw flash image file.
func saveFlash(dev *flash.MemDevice, path string) error {
	var data []byte
	for s := 0; s < dev.NumSectors(); s++ {
		b, err := dev.Bytes(s)
		if err != nil {
			return err
		}
		data = append(data, b...)
	}
	return os.WriteFile(path, data, 0o644)
}
