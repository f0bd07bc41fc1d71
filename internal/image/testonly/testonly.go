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

// Package testonly provides support for image verification tests: freshly
// generated signer key sets and fully signed test images.
package testonly

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/multisig"
)

// Signers is a complete signing setup: a key set and the private keys
// matching it by index.
type Signers struct {
	KeySet multisig.KeySet
	Priv   []ed25519.PrivateKey
}

// NewSigners generates n fresh signer keys with the given threshold.
func NewSigners(t *testing.T, n, threshold int) *Signers {
	t.Helper()

	s := &Signers{KeySet: multisig.KeySet{Threshold: threshold}}
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		var k [multisig.PublicKeySize]byte
		copy(k[:], pub)
		s.KeySet.Keys = append(s.KeySet.Keys, k)
		s.Priv = append(s.Priv, priv)
	}
	return s
}

// Sign produces a signature slot over digest with the key at index.
func (s *Signers) Sign(t *testing.T, index uint8, digest []byte) multisig.Slot {
	t.Helper()

	slot := multisig.Slot{KeyIndex: index}
	copy(slot.Signature[:], ed25519.Sign(s.Priv[index], digest))
	return slot
}

// SignedImage builds a complete header+code image signed by the keys at the
// given indices, one per slot in order.
func (s *Signers) SignedImage(t *testing.T, code []byte, indices ...uint8) []byte {
	t.Helper()

	if len(code)%4 != 0 {
		t.Fatalf("test code length %d not word aligned", len(code))
	}

	hdr := image.New(image.BootloaderMagic, uint32(len(code)), image.Version{Major: 2})
	hdr.SetContentHash(code)

	digest := hdr.SigningDigest()
	for i, idx := range indices {
		slot := s.Sign(t, idx, digest)
		hdr.SetSignature(i, slot.KeyIndex, slot.Signature)
	}

	return append(hdr.Bytes(), code...)
}
