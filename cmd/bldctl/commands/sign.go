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
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/multisig"
)

var signCmd = &cobra.Command{
	Use:   "sign <image.bin>",
	Short: "Add one signature slot to an image",
	Long: `Signs the image's signing digest with an Ed25519 private key (a 32-byte
hex seed) and stores the signature in the first vacant slot, bound to the
given key index. The digest covers the header with all slots zeroed, so
signatures can be added in any order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		hdr, err := image.Parse(raw, image.BootloaderMagic, image.BootloaderMaxSize)
		if err != nil {
			return err
		}

		keyPath, _ := cmd.Flags().GetString("key")
		keyIndex, _ := cmd.Flags().GetUint8("index")

		seedHex, err := os.ReadFile(keyPath)
		if err != nil {
			return err
		}
		seed, err := hex.DecodeString(strings.TrimSpace(string(seedHex)))
		if err != nil || len(seed) != ed25519.SeedSize {
			return fmt.Errorf("key file %s does not hold a 32-byte hex seed", keyPath)
		}

		slot := -1
		for i, s := range hdr.Slots {
			if s.KeyIndex == keyIndex {
				slot = i
				break
			}
			if slot < 0 && s.Vacant() {
				slot = i
			}
		}
		if slot < 0 {
			return fmt.Errorf("no vacant signature slot")
		}

		priv := ed25519.NewKeyFromSeed(seed)
		var sig [multisig.SignatureSize]byte
		copy(sig[:], ed25519.Sign(priv, hdr.SigningDigest()))
		hdr.SetSignature(slot, keyIndex, sig)

		out := append(hdr.Bytes(), raw[image.HeaderSize:]...)
		if err := os.WriteFile(args[0], out, 0o644); err != nil {
			return err
		}

		fmt.Printf("signed slot %d with key index %d\n", slot, keyIndex)
		return nil
	},
}

func init() {
	signCmd.Flags().String("key", "", "file holding the signer's hex seed")
	signCmd.Flags().Uint8("index", 0, "key index the signature binds to")
	signCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(signCmd)
}
