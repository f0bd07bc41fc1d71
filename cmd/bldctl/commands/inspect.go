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
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrMebelMan/boardloader/internal/image"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image.bin>",
	Short: "Print the header fields of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		hdr, err := image.Parse(raw, image.BootloaderMagic, image.BootloaderMaxSize)
		if err != nil {
			return err
		}

		var out bytes.Buffer
		out.WriteString("--------------------------------------------------------- Bootloader image ----\n")
		fmt.Fprintf(&out, "Magic ..................: %#08x\n", hdr.Magic)
		fmt.Fprintf(&out, "Header length ..........: %d\n", hdr.HdrLen)
		fmt.Fprintf(&out, "Code length ............: %d\n", hdr.CodeLen)
		fmt.Fprintf(&out, "Version ................: %s\n", hdr.Version.Semver())
		fmt.Fprintf(&out, "Content hash ...........: %x\n", hdr.ContentHash)
		for i, s := range hdr.Slots {
			if s.Vacant() {
				fmt.Fprintf(&out, "Signature slot %d .......: vacant\n", i)
			} else {
				fmt.Fprintf(&out, "Signature slot %d .......: key index %d, %x...\n", i, s.KeyIndex, s.Signature[:8])
			}
		}

		fmt.Print(out.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
