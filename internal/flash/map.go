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

import "sort"

// SectorMap fixes the assignment of logical regions to physical sector
// indices. The map is shared with later boot stages as a stable contract;
// the Boardloader sectors are the running stage's own and are never part of
// any erase or write set.
type SectorMap struct {
	Boardloader   []int
	Storage       [2]int
	Bootloader    int
	Firmware      []int
	Unused        []int
	FirmwareExtra []int
}

// DefaultMap is the sector layout of the supported board.
func DefaultMap() SectorMap {
	return SectorMap{
		Boardloader:   []int{0, 1, 2},
		Storage:       [2]int{4, 16},
		Bootloader:    5,
		Firmware:      []int{6, 7, 8, 9, 10, 11},
		Unused:        []int{3, 12, 13, 14, 15},
		FirmwareExtra: []int{17, 18, 19, 20, 21, 22, 23},
	}
}

// StorageSectors lists the sectors holding sensitive storage.
func (m SectorMap) StorageSectors() []int {
	return []int{m.Storage[0], m.Storage[1]}
}

// BootloaderSectors lists the sectors holding the next boot stage.
func (m SectorMap) BootloaderSectors() []int {
	return []int{m.Bootloader}
}

// EraseAllButBoardloader lists every mapped sector except the running
// stage's own, storage first so that sensitive data goes earliest, then the
// rest in ascending order.
func (m SectorMap) EraseAllButBoardloader() []int {
	rest := []int{m.Bootloader}
	rest = append(rest, m.Firmware...)
	rest = append(rest, m.Unused...)
	rest = append(rest, m.FirmwareExtra...)
	sort.Ints(rest)

	return append(m.StorageSectors(), rest...)
}
