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

	"github.com/spf13/cobra"

	"github.com/MrMebelMan/boardloader/internal/flash"
	"github.com/MrMebelMan/boardloader/internal/image"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image.bin>",
	Short: "Run the boardloader's full verification against an image",
	Long: `Stages the image in an emulated flash device and runs exactly the checks
the boardloader applies to a resident bootloader: header structure, the
signature threshold, and the content hash over the staged bytes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		ks, err := keySet()
		if err != nil {
			return err
		}

		m := flash.DefaultMap()
		dev := flash.NewMemDevice(flash.DefaultGeometry())
		if err := dev.LoadSector(m.Bootloader, raw); err != nil {
			return err
		}

		sector, err := dev.Bytes(m.Bootloader)
		if err != nil {
			return err
		}
		hdr, err := image.Load(sector, image.BootloaderMagic, image.BootloaderMaxSize, ks)
		if err != nil {
			return err
		}
		if err := image.CheckContents(hdr, image.HeaderSize, dev, m.BootloaderSectors()); err != nil {
			return err
		}

		fmt.Printf("image verifies: version %s, %d code bytes, %d-of-%d signatures\n",
			hdr.Version.Semver(), hdr.CodeLen, ks.Threshold, len(ks.Keys))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
