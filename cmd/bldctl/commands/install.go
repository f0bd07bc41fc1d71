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

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/MrMebelMan/boardloader/internal/sdcard"
)

var installCmd = &cobra.Command{
	Use:   "install <image.bin> <device>",
	Short: "Write an image to the start of an SD card device or file",
	Long: `Writes the image block by block to the target, producing the media layout
the boardloader's recovery flow expects: the image header at block zero,
code immediately after. The image is verified first; pass --force to skip.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if force, _ := cmd.Flags().GetBool("force"); !force {
			if err := verifyCmd.RunE(cmd, args[:1]); err != nil {
				return fmt.Errorf("image does not verify (use --force to install anyway): %w", err)
			}
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if r := len(raw) % sdcard.BlockSize; r != 0 {
			raw = append(raw, make([]byte, sdcard.BlockSize-r)...)
		}

		out, err := os.OpenFile(args[1], os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return err
		}
		defer out.Close()

		blocks := len(raw) / sdcard.BlockSize
		bar := pb.StartNew(blocks)
		for i := 0; i < blocks; i++ {
			if _, err := out.WriteAt(raw[i*sdcard.BlockSize:(i+1)*sdcard.BlockSize], int64(i*sdcard.BlockSize)); err != nil {
				bar.Finish()
				return fmt.Errorf("block %d: %w", i, err)
			}
			bar.Increment()
		}
		bar.Finish()

		fmt.Printf("installed %s to %s (%d blocks)\n", args[0], args[1], blocks)
		return nil
	},
}

func init() {
	installCmd.Flags().Bool("force", false, "skip verification before installing")
	rootCmd.AddCommand(installCmd)
}
