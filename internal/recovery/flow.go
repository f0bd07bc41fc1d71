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

// Package recovery installs a bootloader image from removable media.
//
// The flow is strictly sequential: Idle → Detecting → CountdownConfirm →
// Erasing → Writing → Verifying → Done, with Aborted as the terminal state
// of every failure path. The countdown re-probes the media once per tick, so
// removing the card is always honored before any flash operation.
package recovery

import (
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/MrMebelMan/boardloader/internal/display"
	"github.com/MrMebelMan/boardloader/internal/flash"
	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/multisig"
	"github.com/MrMebelMan/boardloader/internal/sdcard"
)

// State identifies a step of the recovery flow.
type State int

const (
	Idle State = iota
	Detecting
	CountdownConfirm
	Erasing
	Writing
	Verifying
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Detecting:
		return "detecting"
	case CountdownConfirm:
		return "countdown"
	case Erasing:
		return "erasing"
	case Writing:
		return "writing"
	case Verifying:
		return "verifying"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// countdownTicks is the length of the confirmation window; one tick is one
// second.
const countdownTicks = 10

// ErrAborted means the media became invalid or absent during the
// confirmation countdown; no flash operation was performed.
var ErrAborted = errors.New("update aborted, media removed or invalid")

// Flow applies a bootloader image from removable media. It is single-use and
// not reentrant.
type Flow struct {
	Card    sdcard.Card
	Engine  *flash.Engine
	Map     flash.SectorMap
	Keys    multisig.KeySet
	Display display.Display

	// Sleep implements the countdown delay; nil means time.Sleep. It is a
	// plain blocking wait, there is no scheduling to cooperate with.
	Sleep func(time.Duration)

	state State
}

// State returns the flow's current state.
func (f *Flow) State() State {
	return f.state
}

func (f *Flow) setState(s State) {
	klog.V(1).Infof("recovery flow: %v -> %v", f.state, s)
	f.state = s
}

func (f *Flow) sleep(d time.Duration) {
	if f.Sleep != nil {
		f.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Check probes the media for a valid bootloader candidate and returns its
// code length, or 0 when none is present: card absent, too small, unreadable
// or carrying an image that fails header validation or the signature
// threshold. The media is powered off again regardless of outcome.
//
// Only the header can be judged from the prefix read here; the full content
// check runs in the Verifying step once the image is resident in flash.
func (f *Flow) Check() uint32 {
	if f.Card == nil {
		return 0
	}
	f.setState(Detecting)

	if err := f.Card.PowerOn(); err != nil {
		klog.V(1).Infof("media power on: %v", err)
		return 0
	}
	defer f.Card.PowerOff()

	capacity, err := f.Card.Capacity()
	if err != nil || capacity < sdcard.MinCapacity {
		klog.V(1).Infof("media capacity %d unusable (err=%v)", capacity, err)
		return 0
	}

	buf := make([]byte, image.HeaderSize)
	if err := f.Card.ReadBlocks(0, buf); err != nil {
		klog.V(1).Infof("media read: %v", err)
		return 0
	}

	hdr, err := image.Load(buf, image.BootloaderMagic, image.BootloaderMaxSize, f.Keys)
	if err != nil {
		klog.V(1).Infof("no usable bootloader on media: %v", err)
		return 0
	}

	return hdr.CodeLen
}

// Run executes the recovery sequence: confirmation countdown, erase of every
// sector but the running stage's own, streaming copy of the image into the
// bootloader region, and a full verification of what landed in flash. The
// caller is expected to have seen a candidate via Check already.
func (f *Flow) Run() error {
	d := f.Display
	d.SetBacklight(255)

	d.Printf("Boardloader\n")
	d.Printf("===========\n\n")
	d.Printf("bootloader found on the SD card\n\n")
	d.Printf("applying bootloader in %d seconds\n\n", countdownTicks)
	d.Printf("unplug now if you want to abort\n\n")

	var codeLen uint32

	f.setState(CountdownConfirm)
	for i := countdownTicks; i > 0; i-- {
		d.Printf("%d ", i)
		f.sleep(time.Second)

		if codeLen = f.Check(); codeLen == 0 {
			d.Printf("\n\nno SD card, aborting\n")
			f.setState(Aborted)
			return ErrAborted
		}
		f.setState(CountdownConfirm)
	}

	sink := display.NewProgress(d)

	f.setState(Erasing)
	d.Printf("\n\nerasing flash:\n\n")
	if err := f.Engine.Erase(f.Map.EraseAllButBoardloader(), sink); err != nil {
		d.Printf(" failed\n")
		f.setState(Aborted)
		return err
	}
	d.Printf(" done\n\n")

	f.setState(Writing)
	d.Printf("copying new bootloader from SD card\n\n")
	if err := f.writeImage(codeLen, sink); err != nil {
		d.Printf("\nwrite failed\n")
		f.setState(Aborted)
		return err
	}

	f.setState(Verifying)
	if err := f.verify(); err != nil {
		d.Printf("\nverification failed\n")
		f.setState(Aborted)
		return err
	}

	f.setState(Done)
	d.Printf("\ndone\n\n")
	d.Printf("Unplug the device and remove the SD card\n")
	return nil
}

// writeImage streams the image block by block from the media into the
// bootloader region, word by word, inside a single unlock/lock bracket.
func (f *Flow) writeImage(codeLen uint32, sink flash.ProgressSink) (err error) {
	if err := f.Card.PowerOn(); err != nil {
		return fmt.Errorf("media power on: %w", err)
	}
	defer f.Card.PowerOff()

	w, err := f.Engine.Begin()
	if err != nil {
		return err
	}
	defer func() {
		// The lock step runs regardless of how the copy went.
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	total := int(image.HeaderSize + codeLen)
	blocks := (total + sdcard.BlockSize - 1) / sdcard.BlockSize
	buf := make([]byte, sdcard.BlockSize)

	for i := 0; i < blocks; i++ {
		if err = f.Card.ReadBlocks(i, buf); err != nil {
			return fmt.Errorf("media read block %d: %w", i, err)
		}
		if err = w.Write(f.Map.Bootloader, uint32(i*sdcard.BlockSize), buf); err != nil {
			return err
		}
		sink.WriteProgress(i+1, blocks)
	}

	return nil
}

// verify re-reads the freshly written region and runs full header and
// content verification on the resident bytes.
func (f *Flow) verify() error {
	dev := f.Engine.Device()

	b, err := dev.Bytes(f.Map.Bootloader)
	if err != nil {
		return err
	}
	hdr, err := image.Load(b, image.BootloaderMagic, image.BootloaderMaxSize, f.Keys)
	if err != nil {
		return fmt.Errorf("written bootloader: %w", err)
	}

	return image.CheckContents(hdr, image.HeaderSize, dev, f.Map.BootloaderSectors())
}
