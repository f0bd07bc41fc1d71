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

// Package keys carries the fixed public keys trusted to sign bootloader
// images.
//
// Two key sets exist, production and development. The choice between them is
// a build-time variant (the "production" build tag), never a runtime
// parameter, and a single binary never contains both.
package keys

import (
	"encoding/hex"
	"fmt"

	"github.com/MrMebelMan/boardloader/internal/multisig"
)

const (
	// ThresholdM is the number of distinct valid signatures required.
	ThresholdM = 2
	// SignersN is the number of possible signers.
	SignersN = 3
)

// Boardloader returns the key set trusted to sign bootloader images for this
// build variant.
func Boardloader() multisig.KeySet {
	return multisig.KeySet{
		Keys:      boardloaderKeys[:],
		Threshold: ThresholdM,
	}
}

func mustKey(s string) (k [multisig.PublicKeySize]byte) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != multisig.PublicKeySize {
		panic(fmt.Sprintf("malformed embedded public key %q", s))
	}
	copy(k[:], b)
	return
}
