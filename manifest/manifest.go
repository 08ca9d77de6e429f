// Package manifest loads the machine's device manifest: which adapters sit
// on the PCI bus and whether this machine configuration carries a PCI bus
// at all.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hmachida/pcibus/pci"
)

// Machine and video settings recognized by the gating check.
const (
	MachineSVGA = "svga"
	VideoNone   = "none"
)

var (
	ErrVendorMissing  = errors.New("device entry needs a vendor id")
	ErrBARIndex       = errors.New("bar index out of range")
	ErrSlotOutOfRange = errors.New("slot out of range")
)

// BAR is one base address register preset.
type BAR struct {
	Index int    `yaml:"index"`
	Value uint32 `yaml:"value"`
}

// DeviceSpec describes one generic adapter on the bus.
type DeviceSpec struct {
	Name            string `yaml:"name"`
	Vendor          uint16 `yaml:"vendor"`
	Device          uint16 `yaml:"device"`
	Revision        uint8  `yaml:"revision"`
	ProgIF          uint8  `yaml:"prog_if"`
	Subclass        uint8  `yaml:"subclass"`
	Class           uint8  `yaml:"class"`
	HeaderType      uint8  `yaml:"header_type"`
	Command         uint16 `yaml:"command"`
	Status          uint16 `yaml:"status"`
	SubsystemVendor uint16 `yaml:"subsystem_vendor"`
	SubsystemID     uint16 `yaml:"subsystem_id"`
	InterruptLine   uint8  `yaml:"interrupt_line"`
	InterruptPin    uint8  `yaml:"interrupt_pin"`
	BARs            []BAR  `yaml:"bars"`

	// Slot pins the device to a bus position. Registering into an occupied
	// slot appends the device as the next secondary function.
	Slot *uint8 `yaml:"slot"`
}

// Config is the machine-level manifest.
type Config struct {
	Machine string       `yaml:"machine"`
	Video   string       `yaml:"video"`
	Devices []DeviceSpec `yaml:"devices"`
}

// PCICapable reports whether this machine configuration gets a PCI bus at
// all. Only SVGA-capable machines do.
func (c *Config) PCICapable() bool {
	return c.Machine == MachineSVGA && c.Video != VideoNone
}

// Load reads and parses a manifest file.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(buf)
}

// Parse parses and validates a manifest.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	for i, dev := range c.Devices {
		if dev.Vendor == 0 {
			return fmt.Errorf("%w: device %d (%s)", ErrVendorMissing, i, dev.Name)
		}

		if dev.Slot != nil && *dev.Slot >= pci.NumSlots {
			return fmt.Errorf("%w: device %d (%s): %d", ErrSlotOutOfRange, i, dev.Name, *dev.Slot)
		}

		for _, bar := range dev.BARs {
			if bar.Index < 0 || bar.Index > 5 {
				return fmt.Errorf("%w: device %d (%s): %d", ErrBARIndex, i, dev.Name, bar.Index)
			}
		}
	}

	return nil
}
