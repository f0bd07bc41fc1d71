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

package image_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/image/testonly"
	"github.com/MrMebelMan/boardloader/internal/multisig"
)

func testCode(n int) []byte {
	code := make([]byte, n)
	for i := range code {
		code[i] = byte(i)
	}
	return code
}

func TestLoadValid(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(1024), 0, 2)

	hdr, err := image.Load(img, image.BootloaderMagic, image.BootloaderMaxSize, s.KeySet)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hdr.CodeLen != 1024 {
		t.Errorf("CodeLen = %d, want 1024", hdr.CodeLen)
	}
	if got, want := hdr.Version.Semver().String(), "2.0.0"; got != want {
		t.Errorf("Version = %s, want %s", got, want)
	}
}

func TestLoadBadMagicSkipsSignatureCheck(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(64), 0, 1)
	binary.LittleEndian.PutUint32(img, 0xdeadbeef)

	calls := 0
	s.KeySet.Verify = func(pub, digest, sig []byte) bool {
		calls++
		return false
	}

	_, err := image.Load(img, image.BootloaderMagic, image.BootloaderMaxSize, s.KeySet)
	if !errors.Is(err, image.ErrBadMagic) {
		t.Fatalf("Load: %v, want ErrBadMagic", err)
	}
	if calls != 0 {
		t.Errorf("signature verifier called %d times for a bad-magic buffer, want 0", calls)
	}
}

func TestLoadStructuralErrors(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)

	corrupt := func(offset int, value uint32) []byte {
		img := s.SignedImage(t, testCode(64), 0, 1)
		binary.LittleEndian.PutUint32(img[offset:], value)
		return img
	}

	for _, test := range []struct {
		name    string
		buf     []byte
		maxSize uint32
		wantErr error
	}{
		{
			name:    "short buffer",
			buf:     make([]byte, image.HeaderSize-1),
			maxSize: image.BootloaderMaxSize,
			wantErr: image.ErrShortBuffer,
		},
		{
			name:    "wrong header length",
			buf:     corrupt(4, 512),
			maxSize: image.BootloaderMaxSize,
			wantErr: image.ErrBadHeaderLength,
		},
		{
			name:    "zero code length",
			buf:     corrupt(8, 0),
			maxSize: image.BootloaderMaxSize,
			wantErr: image.ErrBadCodeLength,
		},
		{
			name:    "unaligned code length",
			buf:     corrupt(8, 65),
			maxSize: image.BootloaderMaxSize,
			wantErr: image.ErrBadCodeLength,
		},
		{
			name:    "oversize image rejected despite valid signatures",
			buf:     s.SignedImage(t, testCode(64), 0, 1),
			maxSize: image.HeaderSize + 32,
			wantErr: image.ErrOversize,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := image.Load(test.buf, image.BootloaderMagic, test.maxSize, s.KeySet)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Load: %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestLoadInsufficientSignatures(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)

	for _, test := range []struct {
		name    string
		indices []uint8
		wantOK  bool
	}{
		{name: "two distinct", indices: []uint8{0, 1}, wantOK: true},
		{name: "other two distinct", indices: []uint8{1, 2}, wantOK: true},
		{name: "single signer", indices: []uint8{0}},
		{name: "same signer in two slots", indices: []uint8{2, 2}},
		{name: "unsigned", indices: nil},
	} {
		t.Run(test.name, func(t *testing.T) {
			img := s.SignedImage(t, testCode(64), test.indices...)
			_, err := image.Load(img, image.BootloaderMagic, image.BootloaderMaxSize, s.KeySet)
			if test.wantOK {
				if err != nil {
					t.Fatalf("Load: %v", err)
				}
				return
			}
			if !errors.Is(err, multisig.ErrThreshold) {
				t.Fatalf("Load: %v, want ErrThreshold", err)
			}
		})
	}
}

func TestSignaturesIndependentOfSlotOrder(t *testing.T) {
	// The signing digest zeroes all slots, so signatures added in any order
	// or position verify the same.
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(64))

	hdr, err := image.Parse(img, image.BootloaderMagic, image.BootloaderMaxSize)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	digest := hdr.SigningDigest()
	hdr.SetSignature(2, 1, s.Sign(t, 1, digest).Signature)
	hdr.SetSignature(0, 2, s.Sign(t, 2, digest).Signature)

	if err := s.KeySet.Check(hdr.SigningDigest(), hdr.Slots[:]); err != nil {
		t.Fatalf("Check after out-of-order signing: %v", err)
	}
}
