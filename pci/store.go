package pci

import "fmt"

const (
	// NumSlots is the number of device slots on bus 0.
	NumSlots = 32
	// NumFunctions counts the primary function plus up to 7 secondary ones.
	NumFunctions = 8
	// NumRegisters is the size of one configuration register bank.
	NumRegisters = 256

	maxSubdevices = NumFunctions - 1
)

// Slot addresses a device position on the bus (0..31).
type Slot uint8

func (s Slot) Valid() bool {
	return s < NumSlots
}

// Function addresses a sub-unit of a multi-function device (0..7).
// Function 0 is the primary device itself.
type Function uint8

func (f Function) Valid() bool {
	return f < NumFunctions
}

// Register addresses one byte of a configuration bank. Arithmetic on it
// wraps at 256, matching the register index truncation of real chipsets.
type Register uint8

// ConfigStore holds the raw configuration register banks for every
// (slot, function) pair. It has no behavior of its own; the Bus owns it and
// is the only writer, either through the generic register path or on behalf
// of a device hook acting on its own bank.
type ConfigStore struct {
	data [NumSlots * NumFunctions * NumRegisters]byte
}

func storeIndex(slot Slot, fn Function) int {
	if !slot.Valid() || !fn.Valid() {
		panic(fmt.Sprintf("pci: config store access out of range: slot %d function %d", slot, fn))
	}

	return (int(slot)*NumFunctions + int(fn)) * NumRegisters
}

// At returns the stored byte for (slot, fn, reg).
func (c *ConfigStore) At(slot Slot, fn Function, reg Register) byte {
	return c.data[storeIndex(slot, fn)+int(reg)]
}

// Set stores one byte for (slot, fn, reg).
func (c *ConfigStore) Set(slot Slot, fn Function, reg Register, value byte) {
	c.data[storeIndex(slot, fn)+int(reg)] = value
}

// Bank returns the 256-byte register window of one function. The slice
// aliases the store, so a device that keeps it sees every later update of
// its own bank.
func (c *ConfigStore) Bank(slot Slot, fn Function) []byte {
	base := storeIndex(slot, fn)

	return c.data[base : base+NumRegisters]
}

// Reset zeroes every bank.
func (c *ConfigStore) Reset() {
	for i := range c.data {
		c.data[i] = 0
	}
}
