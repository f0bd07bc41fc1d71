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

// The boardloader decides whether the next boot stage is authentic and,
// when a valid candidate is present on removable media, installs it before
// handing control over.
//
// This program drives the boot sequence against file-backed emulated
// hardware, so the complete decision logic runs and can be exercised on a
// host: the flash is an image file, the SD card slot is an optional second
// image file, and hand-off terminates the process.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/coreos/go-semver/semver"

	"github.com/MrMebelMan/boardloader/internal/boot"
	"github.com/MrMebelMan/boardloader/internal/display"
	"github.com/MrMebelMan/boardloader/internal/flash"
	"github.com/MrMebelMan/boardloader/internal/keys"
	"github.com/MrMebelMan/boardloader/internal/sdcard"
)

// initialized at compile time (see Makefile)
var (
	Build    string
	Revision string
)

const (
	model   = "TREZORT"
	version = "2.0.4"

	// bootloaderStart is the mapped address of the bootloader region.
	bootloaderStart = 0x08020000
)

var conf struct {
	flashPath  string
	mediaPath  string
	failOption bool
	quick      bool
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	flag.StringVar(&conf.flashPath, "f", "", "flash image file (blank device when empty)")
	flag.StringVar(&conf.mediaPath, "m", "", "SD card image file (empty slot when omitted)")
	flag.BoolVar(&conf.failOption, "bad-option-bytes", false, "simulate an option byte configuration failure")
	flag.BoolVar(&conf.quick, "quick", false, "skip the countdown delays")
}

func main() {
	flag.Parse()

	log.Printf("%s/%s (%s) • boardloader • %s %s",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), Revision, Build)

	dev := flash.NewMemDevice(flash.DefaultGeometry())
	if conf.flashPath != "" {
		if err := loadFlash(dev, conf.flashPath); err != nil {
			log.Fatalf("could not load flash image, %v", err)
		}
	}

	var card sdcard.Card
	if conf.mediaPath != "" {
		data, err := os.ReadFile(conf.mediaPath)
		if err != nil {
			log.Fatalf("could not load media image, %v", err)
		}
		card = &sdcard.MemCard{Data: data}
	}

	platform := &hostPlatform{dev: dev, path: conf.flashPath, badOptionBytes: conf.failOption}

	hw := boot.Hardware{
		Platform: platform,
		Flash:    dev,
		Display:  display.Text(os.Stdout),
		Card:     card,
	}

	cfg := boot.Config{
		Keys:            keys.Boardloader(),
		Map:             flash.DefaultMap(),
		Model:           model,
		Version:         *semver.New(version),
		BootloaderStart: bootloaderStart,
		MediaRecovery:   card != nil,
		Compat: func() {
			log.Printf("applying bootloader compatibility settings")
		},
	}
	if conf.quick {
		cfg.Sleep = func(time.Duration) {}
	}

	status, err := boot.Run(hw, cfg)
	if err != nil {
		log.Printf("boot attempt ended: %v, %v", status, err)
	} else {
		log.Printf("boot attempt ended: %v", status)
	}

	platform.save()
	os.Exit(exitCode(status))
}

// exitCode maps terminal statuses to the process exit codes consumed by
// non-interactive observers.
func exitCode(s boot.Status) int {
	switch s {
	case boot.StatusMediaApplied, boot.StatusHandOff:
		return 0
	case boot.StatusConfigFailure:
		return 2
	case boot.StatusMediaFailure:
		return 3
	}
	return 1
}
