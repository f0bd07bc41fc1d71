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

//go:build !production

package keys

import "github.com/MrMebelMan/boardloader/internal/multisig"

// Development keys. Images signed with these must never be accepted by a
// production build.
var boardloaderKeys = [SignersN][multisig.PublicKeySize]byte{
	mustKey("db995fe25169d141cab9bbba92baa01f9f2e1ece7df4cb2ac05190f37fcc1f9d"),
	mustKey("2152f8d19b791d24453242e15f2eab6cb7cffa7b6a5ed30097960e069881db12"),
	mustKey("22fc297792f0b6ffc0bfcfdb7edb0c0aa14e025a365ec0e342e86e3829cb74b6"),
}
