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

// Package sdcard defines the removable-media block driver consumed by the
// recovery flow.
package sdcard

const (
	// BlockSize is the media block size in bytes.
	BlockSize = 512
	// MinCapacity is the smallest card accepted as an update medium.
	MinCapacity = 1024 * 1024
)

// Card is a removable-media block device. Implementations are hardware
// drivers; MemCard provides a software card for host runs and tests.
//
// An absent card fails at PowerOn. The recovery flow polls this at every
// countdown tick: removing the card is the user's cancel mechanism.
type Card interface {
	// PowerOn initializes the card.
	PowerOn() error
	// PowerOff releases the card.
	PowerOff()
	// Capacity returns the card size in bytes.
	Capacity() (uint64, error)
	// ReadBlocks reads len(buf) bytes starting at block lba. len(buf) must
	// be a multiple of BlockSize.
	ReadBlocks(lba int, buf []byte) error
}
