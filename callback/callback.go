// Package callback keeps the table of real/protected-mode service callbacks
// the BIOS glue exposes to the guest. Callbacks are addressed by slot number,
// and some slots are part of the savestate ABI: a handler that was installed
// at a fixed slot must reappear at the same slot in every build.
package callback

import (
	"errors"
	"fmt"
)

const numSlots = 256

// Return codes a callback handler reports back to the trampoline.
const (
	RetNone = uint8(iota)
	RetStop
)

var (
	ErrSlotInvalid = errors.New("callback slot out of range")
	ErrSlotClaimed = errors.New("callback slot already claimed")
	ErrSlotEmpty   = errors.New("callback slot has no handler")
	ErrNoFreeSlot  = errors.New("no free callback slot")
)

// Handler runs synchronously when the guest invokes the callback and returns
// one of the Ret* codes.
type Handler func() uint8

type Table struct {
	handlers [numSlots]Handler
	names    [numSlots]string
}

func NewTable() *Table {
	return &Table{}
}

// Install places the handler at the next free slot and returns it.
func (t *Table) Install(h Handler, name string) (int, error) {
	for slot := 0; slot < numSlots; slot++ {
		if t.handlers[slot] == nil {
			t.handlers[slot] = h
			t.names[slot] = name

			return slot, nil
		}
	}

	return -1, ErrNoFreeSlot
}

// InstallFixed places the handler at an exact slot. Handlers referenced by
// position from serialized machine state must use this.
func (t *Table) InstallFixed(slot int, h Handler, name string) error {
	if slot < 0 || slot >= numSlots {
		return fmt.Errorf("%w: %d", ErrSlotInvalid, slot)
	}

	if t.handlers[slot] != nil {
		return fmt.Errorf("%w: %d (%s)", ErrSlotClaimed, slot, t.names[slot])
	}

	t.handlers[slot] = h
	t.names[slot] = name

	return nil
}

// Uninstall frees a slot. Freeing an empty or out-of-range slot is harmless.
func (t *Table) Uninstall(slot int) {
	if slot < 0 || slot >= numSlots {
		return
	}

	t.handlers[slot] = nil
	t.names[slot] = ""
}

// Run invokes the handler installed at slot.
func (t *Table) Run(slot int) (uint8, error) {
	if slot < 0 || slot >= numSlots {
		return RetNone, fmt.Errorf("%w: %d", ErrSlotInvalid, slot)
	}

	if t.handlers[slot] == nil {
		return RetNone, fmt.Errorf("%w: %d", ErrSlotEmpty, slot)
	}

	return t.handlers[slot](), nil
}

// Name returns the label the handler at slot was installed with.
func (t *Table) Name(slot int) string {
	if slot < 0 || slot >= numSlots {
		return ""
	}

	return t.names[slot]
}
