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

// Package capabilities serializes the board capabilities block, the
// tag-length-value sequence at a fixed memory range through which later boot
// stages discover the board model and boardloader version.
//
// The encoding is a stable ABI:
//
//	"TRZC"                                  block magic
//	{tag uint8, length uint8, value}...     entries
//	{0x00, 0x00}                            terminator, always present, always last
//
// Readers skip entries with unknown tags, so new tags may be added in front
// of the terminator without breaking older stages.
package capabilities

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/coreos/go-semver/semver"
)

// Tag identifies a capabilities entry.
type Tag uint8

const (
	// TagTerminator ends the block.
	TagTerminator Tag = 0x00
	// TagModelName carries the board model name.
	TagModelName Tag = 0x01
	// TagVersion carries the boardloader version as four bytes: major,
	// minor, patch, build.
	TagVersion Tag = 0x02
)

var blockMagic = []byte("TRZC")

// ErrMalformed is returned by Decode for any structurally invalid block.
var ErrMalformed = errors.New("malformed capabilities block")

// Block is the decoded form of a capabilities block.
type Block struct {
	Model   string
	Version semver.Version
}

// Encode serializes the block. The model name must fit a single entry.
func (b Block) Encode() ([]byte, error) {
	if len(b.Model) == 0 || len(b.Model) > 255 {
		return nil, fmt.Errorf("model name length %d not in 1..255", len(b.Model))
	}
	if b.Version.Major > 255 || b.Version.Minor > 255 || b.Version.Patch > 255 {
		return nil, fmt.Errorf("version %s does not fit the packed encoding", b.Version)
	}

	var buf bytes.Buffer
	buf.Write(blockMagic)

	buf.WriteByte(byte(TagModelName))
	buf.WriteByte(byte(len(b.Model)))
	buf.WriteString(b.Model)

	buf.WriteByte(byte(TagVersion))
	buf.WriteByte(4)
	buf.Write([]byte{
		byte(b.Version.Major),
		byte(b.Version.Minor),
		byte(b.Version.Patch),
		buildByte(b.Version),
	})

	buf.WriteByte(byte(TagTerminator))
	buf.WriteByte(0)

	return buf.Bytes(), nil
}

// buildByte extracts a numeric build number from the version metadata, zero
// when absent or non-numeric.
func buildByte(v semver.Version) byte {
	n, err := strconv.ParseUint(v.Metadata, 10, 8)
	if err != nil {
		return 0
	}
	return byte(n)
}

// Decode parses an encoded block. It requires the terminator entry to be
// present and skips unknown tags.
func Decode(raw []byte) (*Block, error) {
	if !bytes.HasPrefix(raw, blockMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrMalformed)
	}

	b := &Block{}
	i := len(blockMagic)
	for {
		if i+2 > len(raw) {
			return nil, fmt.Errorf("%w: missing terminator", ErrMalformed)
		}
		tag, length := Tag(raw[i]), int(raw[i+1])
		i += 2

		if tag == TagTerminator {
			if length != 0 {
				return nil, fmt.Errorf("%w: terminator with length %d", ErrMalformed, length)
			}
			return b, nil
		}

		if i+length > len(raw) {
			return nil, fmt.Errorf("%w: entry %#02x overruns block", ErrMalformed, uint8(tag))
		}
		value := raw[i : i+length]
		i += length

		switch tag {
		case TagModelName:
			b.Model = string(value)
		case TagVersion:
			if length != 4 {
				return nil, fmt.Errorf("%w: version entry length %d", ErrMalformed, length)
			}
			b.Version = semver.Version{
				Major: int64(value[0]),
				Minor: int64(value[1]),
				Patch: int64(value[2]),
			}
			if value[3] != 0 {
				b.Version.Metadata = strconv.Itoa(int(value[3]))
			}
		}
	}
}
