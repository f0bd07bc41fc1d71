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

// Package display defines the text output surface of the device and
// progress adapters built on it.
package display

import (
	"fmt"
	"io"

	"github.com/MrMebelMan/boardloader/internal/flash"
)

// Display is the device's text output collaborator.
type Display interface {
	// Printf appends formatted text to the display.
	Printf(format string, args ...any)
	// SetBacklight sets the backlight intensity (0-255).
	SetBacklight(level int)
}

type textDisplay struct {
	w io.Writer
}

// Text returns a Display writing to w, for host runs and tests.
func Text(w io.Writer) Display {
	return &textDisplay{w: w}
}

func (d *textDisplay) Printf(format string, args ...any) {
	fmt.Fprintf(d.w, format, args...)
}

func (d *textDisplay) SetBacklight(level int) {}

// writeDotStep is the write progress interval, in progress units, between
// dots.
const writeDotStep = 64

type progressSink struct {
	d        Display
	lastDots int
}

// NewProgress adapts a Display into a flash.ProgressSink: one dot per erased
// sector, and a dot every writeDotStep write units so that large images
// produce a steadily growing line rather than a wall of dots.
func NewProgress(d Display) flash.ProgressSink {
	return &progressSink{d: d}
}

func (p *progressSink) EraseProgress(done, total int) {
	p.d.Printf(".")
}

func (p *progressSink) WriteProgress(done, total int) {
	if dots := done / writeDotStep; dots > p.lastDots {
		p.lastDots = dots
		p.d.Printf(".")
	}
}
