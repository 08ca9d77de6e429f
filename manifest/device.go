package manifest

import (
	"encoding/binary"

	"github.com/hmachida/pcibus/pci"
)

// GenericDevice exposes a manifest entry on the bus with default hook
// behavior: every writable register simply stores what software writes.
type GenericDevice struct {
	pci.BaseDevice

	spec DeviceSpec
}

func NewDevice(spec DeviceSpec) *GenericDevice {
	return &GenericDevice{
		BaseDevice: pci.NewBaseDevice(spec.Vendor, spec.Device),
		spec:       spec,
	}
}

func (d *GenericDevice) InitializeRegisters(bank []byte) bool {
	binary.LittleEndian.PutUint16(bank[0x04:], d.spec.Command)
	binary.LittleEndian.PutUint16(bank[0x06:], d.spec.Status)
	bank[0x08] = d.spec.Revision
	bank[0x09] = d.spec.ProgIF
	bank[0x0a] = d.spec.Subclass
	bank[0x0b] = d.spec.Class
	bank[0x0e] = d.spec.HeaderType

	for _, bar := range d.spec.BARs {
		binary.LittleEndian.PutUint32(bank[0x10+4*bar.Index:], bar.Value)
	}

	binary.LittleEndian.PutUint16(bank[0x2c:], d.spec.SubsystemVendor)
	binary.LittleEndian.PutUint16(bank[0x2e:], d.spec.SubsystemID)
	bank[0x3c] = d.spec.InterruptLine
	bank[0x3d] = d.spec.InterruptPin

	return true
}
