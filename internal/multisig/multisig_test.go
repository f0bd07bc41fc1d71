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

package multisig

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
)

func testKeySet(t *testing.T, n, threshold int) (KeySet, []ed25519.PrivateKey) {
	t.Helper()

	ks := KeySet{Threshold: threshold}
	var privs []ed25519.PrivateKey
	for i := 0; i < n; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		var k [PublicKeySize]byte
		copy(k[:], pub)
		ks.Keys = append(ks.Keys, k)
		privs = append(privs, priv)
	}
	return ks, privs
}

func sign(priv ed25519.PrivateKey, index uint8, digest []byte) Slot {
	s := Slot{KeyIndex: index}
	copy(s.Signature[:], ed25519.Sign(priv, digest))
	return s
}

func TestCheckThreshold(t *testing.T) {
	digest := []byte("0123456789abcdef0123456789abcdef")
	ks, privs := testKeySet(t, 3, 2)

	// garbage produces a slot with an invalid signature
	garbage := func(index uint8) Slot {
		return Slot{KeyIndex: index, Signature: [SignatureSize]byte{1, 2, 3}}
	}

	for _, test := range []struct {
		name    string
		slots   []Slot
		wantErr bool
	}{
		{
			name:  "two distinct keys pass",
			slots: []Slot{sign(privs[0], 0, digest), sign(privs[2], 2, digest)},
		},
		{
			name:  "all three keys pass",
			slots: []Slot{sign(privs[0], 0, digest), sign(privs[1], 1, digest), sign(privs[2], 2, digest)},
		},
		{
			name:    "one valid signature fails",
			slots:   []Slot{sign(privs[1], 1, digest)},
			wantErr: true,
		},
		{
			name:    "same key twice must not reach the threshold",
			slots:   []Slot{sign(privs[0], 0, digest), sign(privs[0], 0, digest)},
			wantErr: true,
		},
		{
			name:  "duplicate plus a distinct key passes",
			slots: []Slot{sign(privs[0], 0, digest), sign(privs[0], 0, digest), sign(privs[1], 1, digest)},
		},
		{
			name:    "valid signature under the wrong index fails",
			slots:   []Slot{sign(privs[0], 0, digest), sign(privs[1], 2, digest)},
			wantErr: true,
		},
		{
			name:    "out-of-range index never counts",
			slots:   []Slot{sign(privs[0], 0, digest), sign(privs[1], 7, digest)},
			wantErr: true,
		},
		{
			name:    "vacant slots never count",
			slots:   []Slot{sign(privs[0], 0, digest), {KeyIndex: VacantKeyIndex}},
			wantErr: true,
		},
		{
			name:    "invalid signatures never count",
			slots:   []Slot{sign(privs[0], 0, digest), garbage(1)},
			wantErr: true,
		},
		{
			name:    "no slots",
			slots:   nil,
			wantErr: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := ks.Check(digest, test.slots)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Fatalf("Check: %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr && !errors.Is(err, ErrThreshold) {
				t.Fatalf("Check: %v, want ErrThreshold", err)
			}
		})
	}
}

func TestCheckRejectsInvalidKeySet(t *testing.T) {
	digest := []byte("0123456789abcdef0123456789abcdef")
	ks, privs := testKeySet(t, 3, 2)
	slots := []Slot{sign(privs[0], 0, digest), sign(privs[1], 1, digest)}

	for _, threshold := range []int{0, -1, 4} {
		ks.Threshold = threshold
		if err := ks.Check(digest, slots); err == nil {
			t.Errorf("Check with threshold %d: nil, want error", threshold)
		}
	}
}

func TestCheckDuplicateVerifiesOnce(t *testing.T) {
	// A duplicated key index must not even consume a second verification.
	digest := []byte("0123456789abcdef0123456789abcdef")
	ks, privs := testKeySet(t, 3, 2)

	calls := 0
	ks.Verify = func(pub, digest, sig []byte) bool {
		calls++
		return Ed25519(pub, digest, sig)
	}

	slots := []Slot{sign(privs[0], 0, digest), sign(privs[0], 0, digest), sign(privs[1], 1, digest)}
	if err := ks.Check(digest, slots); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if calls != 2 {
		t.Errorf("verifier called %d times, want 2", calls)
	}
}
