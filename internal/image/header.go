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

// Package image parses and verifies boot-stage image headers and the image
// contents they authenticate.
//
// The header is a fixed 1024-byte little-endian structure prefixing a boot
// image:
//
//	offset 0   magic        uint32
//	offset 4   hdrlen       uint32 (always 1024)
//	offset 8   codelen      uint32 (word aligned)
//	offset 12  version      4 × uint8 (major, minor, patch, build)
//	offset 16  content hash 32 bytes (BLAKE2s-256)
//	offset 48  3 signature slots, each {key index uint8; signature 64 bytes}
//	           zero padding to 1024
//
// Two digests derive from the header:
//
//   - the signing digest covers the header with all signature slots zeroed,
//     so the signatures authenticate the content hash;
//   - the content digest covers the header with the slots and the content
//     hash field zeroed, followed by the code bytes.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coreos/go-semver/semver"
	"golang.org/x/crypto/blake2s"

	"github.com/MrMebelMan/boardloader/internal/multisig"
)

const (
	// HeaderSize is the fixed size of an image header in bytes.
	HeaderSize = 1024

	// BootloaderMagic identifies a bootloader image ("TRZB").
	BootloaderMagic = 0x425a5254

	// BootloaderMaxSize is the capacity of the bootloader flash region,
	// bounding hdrlen+codelen of any accepted bootloader image.
	BootloaderMaxSize = 128 * 1024

	// SignatureSlots is the number of signature slots in a header.
	SignatureSlots = 3

	magicOffset       = 0
	hdrLenOffset      = 4
	codeLenOffset     = 8
	versionOffset     = 12
	contentHashOffset = 16
	contentHashSize   = 32
	sigSlotsOffset    = contentHashOffset + contentHashSize
	sigSlotSize       = 1 + multisig.SignatureSize
)

var (
	// ErrShortBuffer means the candidate buffer cannot hold a full header.
	ErrShortBuffer = errors.New("buffer shorter than image header")
	// ErrBadMagic means the magic constant did not match.
	ErrBadMagic = errors.New("invalid image magic")
	// ErrBadHeaderLength means the declared header length is inconsistent
	// with the fixed structure size.
	ErrBadHeaderLength = errors.New("invalid header length field")
	// ErrBadCodeLength means the declared code length is zero or not word
	// aligned.
	ErrBadCodeLength = errors.New("invalid code length field")
	// ErrOversize means header plus code exceed the target region.
	ErrOversize = errors.New("image too large for target region")
	// ErrContentMismatch means the image contents do not hash to the
	// authenticated value.
	ErrContentMismatch = errors.New("image content hash mismatch")
)

// Version is the packed image version carried in the header.
type Version struct {
	Major, Minor, Patch, Build uint8
}

// Semver returns the version in semantic-version form, with the build number
// as metadata.
func (v Version) Semver() semver.Version {
	sv := semver.Version{
		Major: int64(v.Major),
		Minor: int64(v.Minor),
		Patch: int64(v.Patch),
	}
	if v.Build != 0 {
		sv.Metadata = fmt.Sprintf("%d", v.Build)
	}
	return sv
}

// Header is a parsed and structurally valid image header. Instances come
// from Parse/Load, or from New when building images.
type Header struct {
	Magic       uint32
	HdrLen      uint32
	CodeLen     uint32
	Version     Version
	ContentHash [contentHashSize]byte
	Slots       [SignatureSlots]multisig.Slot

	// raw holds the exact serialized header; all digests are computed over
	// these bytes so that what was verified is what is resident.
	raw [HeaderSize]byte
}

// Parse reads the header at the start of buf and validates its structure:
// magic, internal length consistency, and that the declared image fits in
// maxSize. It performs no signature verification; use Load on untrusted
// input.
func Parse(buf []byte, magic uint32, maxSize uint32) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortBuffer, len(buf))
	}

	h := &Header{}
	copy(h.raw[:], buf[:HeaderSize])

	h.Magic = binary.LittleEndian.Uint32(h.raw[magicOffset:])
	if h.Magic != magic {
		return nil, fmt.Errorf("%w: %#08x", ErrBadMagic, h.Magic)
	}

	h.HdrLen = binary.LittleEndian.Uint32(h.raw[hdrLenOffset:])
	if h.HdrLen != HeaderSize {
		return nil, fmt.Errorf("%w: %d", ErrBadHeaderLength, h.HdrLen)
	}

	h.CodeLen = binary.LittleEndian.Uint32(h.raw[codeLenOffset:])
	if h.CodeLen == 0 || h.CodeLen%4 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadCodeLength, h.CodeLen)
	}
	if uint64(h.HdrLen)+uint64(h.CodeLen) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d+%d > %d", ErrOversize, h.HdrLen, h.CodeLen, maxSize)
	}

	h.Version = Version{
		Major: h.raw[versionOffset],
		Minor: h.raw[versionOffset+1],
		Patch: h.raw[versionOffset+2],
		Build: h.raw[versionOffset+3],
	}
	copy(h.ContentHash[:], h.raw[contentHashOffset:])

	for i := 0; i < SignatureSlots; i++ {
		off := sigSlotsOffset + i*sigSlotSize
		h.Slots[i].KeyIndex = h.raw[off]
		copy(h.Slots[i].Signature[:], h.raw[off+1:])
	}

	return h, nil
}

// Load parses the header at the start of buf and verifies its signature
// threshold against ks. Structural validation happens strictly before any
// signature check; a buffer with a bad magic or inconsistent lengths is
// rejected without a single signature verification. There is no partial
// result: on any error the returned header is nil.
func Load(buf []byte, magic uint32, maxSize uint32, ks multisig.KeySet) (*Header, error) {
	h, err := Parse(buf, magic, maxSize)
	if err != nil {
		return nil, err
	}

	if err := ks.Check(h.SigningDigest(), h.Slots[:]); err != nil {
		return nil, fmt.Errorf("header signature check: %w", err)
	}

	return h, nil
}

// SigningDigest returns the digest the image signers sign: BLAKE2s-256 over
// the header with every signature slot zeroed.
func (h *Header) SigningDigest() []byte {
	b := h.raw
	zeroSlots(b[:])
	sum := blake2s.Sum256(b[:])
	return sum[:]
}

// Bytes returns the serialized header.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b, h.raw[:])
	return b
}

func zeroSlots(b []byte) {
	for i := sigSlotsOffset; i < sigSlotsOffset+SignatureSlots*sigSlotSize; i++ {
		b[i] = 0
	}
}

// New returns a header for codeLen bytes of code, with a vacant signature
// slot set and no content hash. It is intended for image-building tools;
// call SetContentHash and SetSignature before serializing.
func New(magic uint32, codeLen uint32, v Version) *Header {
	h := &Header{
		Magic:   magic,
		HdrLen:  HeaderSize,
		CodeLen: codeLen,
		Version: v,
	}

	binary.LittleEndian.PutUint32(h.raw[magicOffset:], magic)
	binary.LittleEndian.PutUint32(h.raw[hdrLenOffset:], HeaderSize)
	binary.LittleEndian.PutUint32(h.raw[codeLenOffset:], codeLen)
	h.raw[versionOffset] = v.Major
	h.raw[versionOffset+1] = v.Minor
	h.raw[versionOffset+2] = v.Patch
	h.raw[versionOffset+3] = v.Build

	for i := range h.Slots {
		h.SetSignature(i, multisig.VacantKeyIndex, [multisig.SignatureSize]byte{})
	}

	return h
}

// SetContentHash computes and stores the content hash for the given code
// bytes.
func (h *Header) SetContentHash(code []byte) {
	sum := ContentDigest(h.raw[:], code)
	copy(h.ContentHash[:], sum)
	copy(h.raw[contentHashOffset:], sum)
}

// SetSignature fills signature slot i.
func (h *Header) SetSignature(i int, keyIndex uint8, sig [multisig.SignatureSize]byte) {
	h.Slots[i] = multisig.Slot{KeyIndex: keyIndex, Signature: sig}
	off := sigSlotsOffset + i*sigSlotSize
	h.raw[off] = keyIndex
	copy(h.raw[off+1:], sig[:])
}
