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

package recovery_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrMebelMan/boardloader/internal/display"
	"github.com/MrMebelMan/boardloader/internal/flash"
	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/image/testonly"
	"github.com/MrMebelMan/boardloader/internal/recovery"
	"github.com/MrMebelMan/boardloader/internal/sdcard"
)

func testCode(n int) []byte {
	code := make([]byte, n)
	for i := range code {
		code[i] = byte(i * 7)
	}
	return code
}

// rig assembles a flow over an emulated flash device and the given card.
func rig(t *testing.T, s *testonly.Signers, card sdcard.Card, out io.Writer) (*recovery.Flow, *flash.MemDevice) {
	t.Helper()

	if out == nil {
		out = io.Discard
	}
	dev := flash.NewMemDevice(flash.DefaultGeometry())
	m := flash.DefaultMap()
	return &recovery.Flow{
		Card:    card,
		Engine:  flash.NewEngine(dev, m.Boardloader),
		Map:     m,
		Keys:    s.KeySet,
		Display: display.Text(out),
		Sleep:   func(time.Duration) {},
	}, dev
}

func snapshot(t *testing.T, dev *flash.MemDevice) [][]byte {
	t.Helper()

	var out [][]byte
	for i := 0; i < dev.NumSectors(); i++ {
		b, err := dev.Bytes(i)
		if err != nil {
			t.Fatalf("Bytes(%d): %v", i, err)
		}
		out = append(out, b)
	}
	return out
}

func TestCheck(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(4096), 0, 2)

	for _, test := range []struct {
		name string
		card sdcard.Card
		want uint32
	}{
		{
			name: "valid candidate",
			card: &sdcard.MemCard{Data: img},
			want: 4096,
		},
		{
			name: "no card",
			card: nil,
		},
		{
			name: "absent card",
			card: &sdcard.MemCard{Data: img, Absent: true},
		},
		{
			name: "card too small",
			card: &sdcard.MemCard{Data: img, Size: sdcard.MinCapacity / 2},
		},
		{
			name: "blank card",
			card: &sdcard.MemCard{},
		},
		{
			name: "unsigned image",
			card: &sdcard.MemCard{Data: unsigned(t, testCode(4096))},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			f, _ := rig(t, s, test.card, nil)
			if got := f.Check(); got != test.want {
				t.Fatalf("Check() = %d, want %d", got, test.want)
			}
		})
	}
}

// unsigned builds a structurally valid image with all signature slots
// vacant.
func unsigned(t *testing.T, code []byte) []byte {
	t.Helper()

	hdr := image.New(image.BootloaderMagic, uint32(len(code)), image.Version{Major: 2})
	hdr.SetContentHash(code)
	return append(hdr.Bytes(), code...)
}

func TestRunAppliesImage(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(8192), 0, 1)

	var out bytes.Buffer
	f, dev := rig(t, s, &sdcard.MemCard{Data: img}, &out)

	var erased []int
	dev.OnErase = func(sector int) { erased = append(erased, sector) }

	if got := f.Check(); got != 8192 {
		t.Fatalf("Check() = %d, want 8192", got)
	}
	if err := f.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.State(); got != recovery.Done {
		t.Fatalf("State() = %v, want %v", got, recovery.Done)
	}

	if diff := cmp.Diff(f.Map.EraseAllButBoardloader(), erased); diff != "" {
		t.Fatalf("erased sectors diff (-want +got):\n%s", diff)
	}

	b, err := dev.Bytes(f.Map.Bootloader)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(b[:len(img)], img) {
		t.Fatal("bootloader region does not match the media image")
	}

	for _, want := range []string{
		"bootloader found on the SD card",
		"10 9 8 7 6 5 4 3 2 1",
		"Unplug the device and remove the SD card",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("display output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunAbortsOnCardRemoval(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(4096), 0, 1)

	// The first PowerOn is the initial probe; the card vanishes partway
	// through the countdown.
	card := &sdcard.MemCard{Data: img, RemoveAfter: 5}

	var out bytes.Buffer
	f, dev := rig(t, s, card, &out)

	touched := false
	dev.OnErase = func(int) { touched = true }
	dev.OnWriteWord = func(int, uint32) { touched = true }

	if got := f.Check(); got != 4096 {
		t.Fatalf("Check() = %d, want 4096", got)
	}
	before := snapshot(t, dev)

	if err := f.Run(); !errors.Is(err, recovery.ErrAborted) {
		t.Fatalf("Run: %v, want ErrAborted", err)
	}
	if got := f.State(); got != recovery.Aborted {
		t.Fatalf("State() = %v, want %v", got, recovery.Aborted)
	}

	if touched {
		t.Fatal("flash was modified during an aborted countdown")
	}
	if diff := cmp.Diff(before, snapshot(t, dev)); diff != "" {
		t.Fatalf("flash contents changed (-before +after):\n%s", diff)
	}
	if !strings.Contains(out.String(), "no SD card, aborting") {
		t.Errorf("display output missing abort message:\n%s", out.String())
	}
}

func TestRunCountsDownFullWindow(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(1024), 0, 1)

	f, _ := rig(t, s, &sdcard.MemCard{Data: img}, nil)

	var slept int
	f.Sleep = func(d time.Duration) {
		if d != time.Second {
			t.Errorf("Sleep(%v), want 1s ticks", d)
		}
		slept++
	}

	if err := f.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if slept != 10 {
		t.Fatalf("slept %d ticks, want 10", slept)
	}
}

func TestRunDetectsCorruptedWrite(t *testing.T) {
	s := testonly.NewSigners(t, 3, 2)
	img := s.SignedImage(t, testCode(4096), 0, 1)

	f, dev := rig(t, s, &sdcard.MemCard{Data: img}, nil)

	// Let a cell in the code region fail silently in a way the word
	// verification cannot see: the failing word is all ones, matching the
	// erased state. Only the content check catches it.
	dev.FailWriteAt = func(sector int, offset uint32) bool {
		return sector == f.Map.Bootloader && offset == image.HeaderSize+64
	}
	img[image.HeaderSize+64] = 0xff
	img[image.HeaderSize+65] = 0xff
	img[image.HeaderSize+66] = 0xff
	img[image.HeaderSize+67] = 0xff

	if err := f.Run(); err == nil {
		t.Fatal("Run succeeded with a corrupted write")
	}
	if got := f.State(); got != recovery.Aborted {
		t.Fatalf("State() = %v, want %v", got, recovery.Aborted)
	}
}
