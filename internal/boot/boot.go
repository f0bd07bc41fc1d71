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

// Package boot sequences one boot attempt: flash protection check, board
// capabilities publication, the optional removable-media recovery path,
// verification of the resident bootloader, and the final hand-off.
//
// Control is transferred if and only if the resident image passed both the
// signature threshold check and the content hash check. There is no path
// that hands off on signature success alone.
package boot

import (
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-semver/semver"
	"k8s.io/klog/v2"

	"github.com/MrMebelMan/boardloader/internal/capabilities"
	"github.com/MrMebelMan/boardloader/internal/display"
	"github.com/MrMebelMan/boardloader/internal/flash"
	"github.com/MrMebelMan/boardloader/internal/image"
	"github.com/MrMebelMan/boardloader/internal/multisig"
	"github.com/MrMebelMan/boardloader/internal/recovery"
	"github.com/MrMebelMan/boardloader/internal/sdcard"
)

// Status is the terminal outcome of a boot attempt, surfaced to host
// observers as a process exit status.
type Status int

const (
	// StatusMediaApplied: a bootloader from removable media was installed.
	StatusMediaApplied Status = iota
	// StatusMediaFailure: the media update was started but did not finish.
	StatusMediaFailure
	// StatusConfigFailure: flash protection could not be configured; the
	// storage sectors were wiped best-effort.
	StatusConfigFailure
	// StatusHalted: the resident bootloader failed verification and the
	// device was halted without hand-off.
	StatusHalted
	// StatusHandOff: control was transferred to the verified bootloader.
	// On hardware the hand-off never returns, so this value is observable
	// only with a test Platform.
	StatusHandOff
)

func (s Status) String() string {
	switch s {
	case StatusMediaApplied:
		return "media update applied"
	case StatusMediaFailure:
		return "media update failed"
	case StatusConfigFailure:
		return "flash configuration failed"
	case StatusHalted:
		return "halted"
	case StatusHandOff:
		return "hand-off"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Platform groups the board-level collaborators the boot sequence drives but
// does not implement.
type Platform interface {
	// ResetFlags clears the reset-reason flags of a fresh boot.
	ResetFlags()
	// ConfigureOptionBytes ensures the flash protection configuration is in
	// place; false means the device must not proceed.
	ConfigureOptionBytes() bool
	// ClearVolatileBuffers zeroes volatile memory reachable by peripherals.
	ClearVolatileBuffers()
	// PublishCapabilities writes the encoded capabilities block to the
	// fixed region read by the next boot stage.
	PublishCapabilities(block []byte)
	// Halt stops the device with a diagnostic. It never returns on
	// hardware; test doubles may return, and the sequence stops regardless.
	Halt(msg string)
	// HandOff transfers execution to the given address. It never returns on
	// hardware.
	HandOff(addr uint32)
}

// Hardware bundles the collaborators for one boot attempt.
type Hardware struct {
	Platform Platform
	Flash    flash.Device
	Display  display.Display
	// Card is nil on models without a media slot.
	Card sdcard.Card
}

// Config fixes the build-variant parameters of the boot sequence.
type Config struct {
	Keys  multisig.KeySet
	Map   flash.SectorMap
	Model string
	// Version is the boardloader version published in the capabilities
	// block.
	Version semver.Version
	// BootloaderStart is the memory address where the bootloader region is
	// mapped; hand-off targets BootloaderStart+HeaderSize.
	BootloaderStart uint32
	// MediaRecovery gates the removable-media update path; it is set only
	// on models with a media slot.
	MediaRecovery bool
	// Compat optionally resets boardloader-side settings that older
	// bootloaders do not know about, just before hand-off.
	Compat func()
	// Sleep overrides the recovery countdown delay, for tests.
	Sleep func(time.Duration)
}

// Run executes one boot attempt and returns its terminal status. On
// hardware the successful resident path never returns, since HandOff does
// not; every returned status therefore describes a non-hand-off outcome or a
// test double.
func Run(hw Hardware, cfg Config) (Status, error) {
	hw.Platform.ResetFlags()

	engine := flash.NewEngine(hw.Flash, cfg.Map.Boardloader)

	if !hw.Platform.ConfigureOptionBytes() {
		// The display may not be initialized yet; wipe sensitive storage
		// best-effort and stop with a distinct status.
		if err := engine.Erase(cfg.Map.StorageSectors(), nil); err != nil {
			klog.Errorf("storage wipe after option byte failure: %v", err)
		}
		return StatusConfigFailure, errors.New("flash option bytes configuration failed")
	}

	hw.Platform.ClearVolatileBuffers()

	block, err := capabilities.Block{Model: cfg.Model, Version: cfg.Version}.Encode()
	if err != nil {
		return StatusConfigFailure, fmt.Errorf("capabilities block: %w", err)
	}
	hw.Platform.PublishCapabilities(block)

	hw.Display.SetBacklight(0)

	if cfg.MediaRecovery && hw.Card != nil {
		flow := &recovery.Flow{
			Card:    hw.Card,
			Engine:  engine,
			Map:     cfg.Map,
			Keys:    cfg.Keys,
			Display: hw.Display,
			Sleep:   cfg.Sleep,
		}

		if flow.Check() != 0 {
			if err := flow.Run(); err != nil {
				klog.Errorf("media update: %v", err)
				return StatusMediaFailure, err
			}
			return StatusMediaApplied, nil
		}
		// No update available; fall through to the resident image.
	}

	sector, err := hw.Flash.Bytes(cfg.Map.Bootloader)
	if err != nil {
		hw.Platform.Halt("bootloader region unreadable")
		return StatusHalted, err
	}

	hdr, err := image.Load(sector, image.BootloaderMagic, image.BootloaderMaxSize, cfg.Keys)
	if err != nil {
		klog.Errorf("resident bootloader header: %v", err)
		hw.Platform.Halt("invalid bootloader header")
		return StatusHalted, err
	}

	if err := image.CheckContents(hdr, image.HeaderSize, hw.Flash, cfg.Map.BootloaderSectors()); err != nil {
		klog.Errorf("resident bootloader contents: %v", err)
		hw.Platform.Halt("invalid bootloader hash")
		return StatusHalted, err
	}

	if cfg.Compat != nil {
		cfg.Compat()
	}

	// Both the signature threshold and the content hash held for the bytes
	// resident in flash; transfer control.
	hw.Platform.HandOff(cfg.BootloaderStart + image.HeaderSize)

	// Reached only when a test double stands in for the real platform.
	return StatusHandOff, nil
}
