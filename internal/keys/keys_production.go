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

//go:build production

package keys

import "github.com/MrMebelMan/boardloader/internal/multisig"

var boardloaderKeys = [SignersN][multisig.PublicKeySize]byte{
	mustKey("0eb9856be9ba7e972c7f34eac1ed9b6fd0efd172ec00faf0c589759da4ddfba0"),
	mustKey("ac8ab40b32c98655798fd5da5e192be27a22306ea05c6d277cdff4a3f4125cd8"),
	mustKey("ce0fcd12543ef5936cf2804982136707863d17295faced72af171d6e6513ff06"),
}
