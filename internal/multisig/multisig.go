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

// Package multisig implements M-of-N threshold verification of image
// signatures.
//
// A signature counts toward the threshold at most once per distinct key
// index. The distinct-index accounting is done here, explicitly, and is never
// assumed to be a property of the underlying signature primitive.
package multisig

import (
	"crypto/ed25519"
	"errors"
	"fmt"
)

const (
	// PublicKeySize is the length of a signer public key in bytes.
	PublicKeySize = 32
	// SignatureSize is the length of a signature slot payload in bytes.
	SignatureSize = 64
	// VacantKeyIndex marks an unused signature slot.
	VacantKeyIndex = 0xff
)

// ErrThreshold is returned when fewer than the required number of distinct
// keys produced a valid signature.
var ErrThreshold = errors.New("not enough valid signatures from distinct keys")

// Slot is a single signature slot from an image header, binding a signature
// to the index of the public key it claims to verify under.
type Slot struct {
	KeyIndex  uint8
	Signature [SignatureSize]byte
}

// Vacant reports whether the slot carries no signature.
func (s Slot) Vacant() bool {
	return s.KeyIndex == VacantKeyIndex
}

// Verifier checks a single signature over digest with the given public key.
type Verifier func(pub, digest, sig []byte) bool

// Ed25519 verifies a signature with crypto/ed25519. It is the default
// Verifier, matching the 32-byte public key ABI of the key sets.
func Ed25519(pub, digest, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
}

// KeySet is an ordered set of signer public keys together with the number of
// distinct valid signatures required for an image to be considered authentic.
// Exactly one KeySet is active per build variant; see the keys package.
type KeySet struct {
	Keys      [][PublicKeySize]byte
	Threshold int

	// Verify checks one signature. Nil selects Ed25519.
	Verify Verifier
}

// Check returns nil iff at least Threshold slots carry a valid signature over
// digest, counting each key index at most once. No particular key is
// mandatory; any Threshold-sized subset of the set suffices. Slots with a
// vacant or out-of-range key index never count.
func (ks KeySet) Check(digest []byte, slots []Slot) error {
	if ks.Threshold <= 0 || ks.Threshold > len(ks.Keys) {
		return fmt.Errorf("invalid key set: threshold %d of %d keys", ks.Threshold, len(ks.Keys))
	}

	verify := ks.Verify
	if verify == nil {
		verify = Ed25519
	}

	counted := make(map[uint8]bool, len(ks.Keys))
	valid := 0

	for _, s := range slots {
		if s.Vacant() || int(s.KeyIndex) >= len(ks.Keys) {
			continue
		}
		if counted[s.KeyIndex] {
			// Same key again; repeating a signature must never help.
			continue
		}
		if !verify(ks.Keys[s.KeyIndex][:], digest, s.Signature[:]) {
			continue
		}
		counted[s.KeyIndex] = true
		if valid++; valid >= ks.Threshold {
			return nil
		}
	}

	return fmt.Errorf("%w: got %d, need %d", ErrThreshold, valid, ks.Threshold)
}
