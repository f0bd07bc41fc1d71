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

package flash

import (
	"encoding/binary"
	"errors"
	"fmt"

	"k8s.io/klog/v2"
)

var (
	// ErrOwnSector means an erase or write targeted a sector the running
	// stage occupies. Allowing it would brick the device.
	ErrOwnSector = errors.New("operation targets the running stage's own sector")
	// ErrBusy means a write session is already open; the engine is not
	// reentrant.
	ErrBusy = errors.New("flash write session already open")
	// ErrClosed means the write session has already ended.
	ErrClosed = errors.New("flash write session closed")
)

// Engine sequences erases and verified word writes on a Device. The flash is
// an exclusive resource: each operation is bracketed by unlock/lock and no
// two brackets may be open at once.
type Engine struct {
	dev Device
	own []int

	open *Writer
}

// NewEngine returns an engine for dev that refuses to touch the given own
// sectors under any circumstance.
func NewEngine(dev Device, own []int) *Engine {
	return &Engine{dev: dev, own: own}
}

// Device returns the underlying device, for read-only inspection such as
// content verification.
func (e *Engine) Device() Device {
	return e.dev
}

func (e *Engine) checkNotOwn(sector int) error {
	for _, s := range e.own {
		if s == sector {
			return fmt.Errorf("%w: sector %d", ErrOwnSector, sector)
		}
	}
	return nil
}

// Erase erases the given sectors in order, reporting progress after each.
// The whole set is validated against the own-sector list before the first
// erase is issued; a set containing an own sector fails without touching the
// device. The flash is locked again on return regardless of outcome.
func (e *Engine) Erase(sectors []int, sink ProgressSink) (err error) {
	for _, s := range sectors {
		if err := e.checkNotOwn(s); err != nil {
			return err
		}
	}
	if e.open != nil {
		return ErrBusy
	}

	sk := sinkOrNop(sink)

	if err = e.dev.Unlock(); err != nil {
		return fmt.Errorf("flash unlock: %w", err)
	}
	defer func() {
		if lerr := e.dev.Lock(); lerr != nil && err == nil {
			err = fmt.Errorf("flash lock: %w", lerr)
		}
	}()

	klog.V(1).Infof("erasing %d sectors", len(sectors))

	for i, s := range sectors {
		if err = e.dev.EraseSector(s); err != nil {
			return fmt.Errorf("erase sector %d: %w", s, err)
		}
		sk.EraseProgress(i+1, len(sectors))
	}

	return nil
}

// Begin unlocks the flash and opens a write session. The session must be
// ended with Close, which performs the lock step even after a failed write.
func (e *Engine) Begin() (*Writer, error) {
	if e.open != nil {
		return nil, ErrBusy
	}
	if err := e.dev.Unlock(); err != nil {
		return nil, fmt.Errorf("flash unlock: %w", err)
	}
	e.open = &Writer{e: e}
	return e.open, nil
}

// Writer streams verified word writes inside a single unlock/lock bracket.
type Writer struct {
	e      *Engine
	closed bool
}

// Write programs buf word by word at a byte offset within sector. len(buf)
// must be a multiple of 4. Every word is individually verified by the
// device; the first failed word ends the sequence, a partially written image
// must never be completed best-effort.
func (w *Writer) Write(sector int, offset uint32, buf []byte) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.e.checkNotOwn(sector); err != nil {
		return err
	}
	if len(buf)%4 != 0 {
		return fmt.Errorf("write length %d not word aligned", len(buf))
	}

	for i := 0; i < len(buf); i += 4 {
		word := binary.LittleEndian.Uint32(buf[i:])
		if err := w.e.dev.WriteWord(sector, offset+uint32(i), word); err != nil {
			return fmt.Errorf("write word at sector %d offset %#x: %w", sector, offset+uint32(i), err)
		}
	}

	return nil
}

// Close locks the flash and ends the session. It runs the lock step
// unconditionally and may be called again after an error; later calls are
// no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.e.open = nil

	if err := w.e.dev.Lock(); err != nil {
		return fmt.Errorf("flash lock: %w", err)
	}
	return nil
}
