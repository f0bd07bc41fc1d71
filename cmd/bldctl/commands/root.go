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

// Package commands implements the bldctl subcommands.
package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrMebelMan/boardloader/internal/keys"
	"github.com/MrMebelMan/boardloader/internal/multisig"
)

var rootCmd = &cobra.Command{
	Use:   "bldctl",
	Short: "Bootloader image tool for the boardloader image format",
	Long: `Builds, signs, inspects, verifies and installs bootloader images in the
fixed header format the boardloader authenticates before hand-off.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("pubkeys", "", "comma-separated hex public keys overriding the built-in set")
	rootCmd.PersistentFlags().Int("threshold", keys.ThresholdM, "required number of distinct valid signatures")

	viper.BindPFlag("pubkeys", rootCmd.PersistentFlags().Lookup("pubkeys"))
	viper.BindPFlag("threshold", rootCmd.PersistentFlags().Lookup("threshold"))

	viper.SetEnvPrefix("BLDCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// keySet returns the key set to verify against: the build variant's
// built-in set, unless overridden via --pubkeys or BLDCTL_PUBKEYS.
func keySet() (multisig.KeySet, error) {
	raw := viper.GetString("pubkeys")
	if raw == "" {
		ks := keys.Boardloader()
		ks.Threshold = viper.GetInt("threshold")
		return ks, nil
	}

	var set multisig.KeySet
	for _, s := range strings.Split(raw, ",") {
		b, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil || len(b) != multisig.PublicKeySize {
			return set, fmt.Errorf("malformed public key %q", s)
		}
		var k [multisig.PublicKeySize]byte
		copy(k[:], b)
		set.Keys = append(set.Keys, k)
	}
	set.Threshold = viper.GetInt("threshold")
	return set, nil
}
