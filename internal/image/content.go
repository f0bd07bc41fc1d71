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

package image

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2s"
)

// SectorReader exposes the current contents of flash sectors. It is
// satisfied by the flash device driver.
type SectorReader interface {
	// Bytes returns the current contents of a sector.
	Bytes(sector int) ([]byte, error)
}

// ContentDigest hashes headerBytes, with the signature slots and the content
// hash field zeroed, followed by the code bytes.
func ContentDigest(headerBytes, code []byte) []byte {
	b := make([]byte, HeaderSize)
	copy(b, headerBytes)
	zeroSlots(b)
	for i := contentHashOffset; i < contentHashOffset+contentHashSize; i++ {
		b[i] = 0
	}

	d, err := blake2s.New256(nil)
	if err != nil {
		// blake2s.New256 only fails on key misuse.
		panic(err)
	}
	d.Write(b)
	d.Write(code)
	return d.Sum(nil)
}

// CheckContents verifies that the header and code bytes resident in the
// given flash sectors hash to the value authenticated by hdr's signatures.
// The bytes are read from the sectors themselves, not from any transient
// copy, so the verdict applies to the code that would actually run. A
// mismatch is always an error, never a warning: it means corruption or
// tampering of code staged for execution.
func CheckContents(hdr *Header, headerSize int, dev SectorReader, sectors []int) error {
	var data []byte
	for _, s := range sectors {
		b, err := dev.Bytes(s)
		if err != nil {
			return fmt.Errorf("reading sector %d: %w", s, err)
		}
		data = append(data, b...)
	}

	need := headerSize + int(hdr.CodeLen)
	if len(data) < need {
		return fmt.Errorf("%w: sectors hold %d bytes, image needs %d", ErrContentMismatch, len(data), need)
	}

	sum := ContentDigest(data[:headerSize], data[headerSize:need])
	if !bytes.Equal(sum, hdr.ContentHash[:]) {
		return fmt.Errorf("%w: computed %x", ErrContentMismatch, sum)
	}

	return nil
}
