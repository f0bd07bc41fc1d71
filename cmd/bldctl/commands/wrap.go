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

package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/cobra"

	"github.com/MrMebelMan/boardloader/internal/image"
)

var wrapCmd = &cobra.Command{
	Use:   "wrap <code.bin> <image.bin>",
	Short: "Wrap raw bootloader code in an unsigned image header",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		// Word-align the code, the flash engine writes whole words.
		if r := len(code) % 4; r != 0 {
			code = append(code, make([]byte, 4-r)...)
		}

		verStr, _ := cmd.Flags().GetString("version")
		ver, err := parseVersion(verStr)
		if err != nil {
			return err
		}

		hdr := image.New(image.BootloaderMagic, uint32(len(code)), ver)
		hdr.SetContentHash(code)

		out := append(hdr.Bytes(), code...)
		if err := os.WriteFile(args[1], out, 0o644); err != nil {
			return err
		}

		fmt.Printf("wrapped %d code bytes as %s (unsigned)\n", len(code), args[1])
		return nil
	},
}

// parseVersion maps a semantic version onto the packed header form, taking
// the build number from the metadata part (e.g. 2.1.0+3).
func parseVersion(s string) (image.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return image.Version{}, fmt.Errorf("version %q: %w", s, err)
	}
	if v.Major > 255 || v.Minor > 255 || v.Patch > 255 {
		return image.Version{}, fmt.Errorf("version %q does not fit the packed encoding", s)
	}

	build := 0
	if v.Metadata != "" {
		if build, err = strconv.Atoi(v.Metadata); err != nil || build > 255 {
			return image.Version{}, fmt.Errorf("build metadata %q is not a byte", v.Metadata)
		}
	}

	return image.Version{
		Major: uint8(v.Major),
		Minor: uint8(v.Minor),
		Patch: uint8(v.Patch),
		Build: uint8(build),
	}, nil
}

func init() {
	wrapCmd.Flags().String("version", "0.0.0", "image version (semver, build number as metadata)")
	rootCmd.AddCommand(wrapCmd)
}
