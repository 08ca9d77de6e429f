package pci

// Device is implemented by every hardware model that attaches to the bus.
// The bus handles address decode and the generic register access policy;
// the three parse/override hooks let a model customize behavior for its own
// registers without the bus knowing its internals.
type Device interface {
	VendorID() uint16
	DeviceID() uint16

	// InitializeRegisters fills the device's configuration bank before the
	// device becomes visible on the bus. Returning false aborts the
	// registration. The bank slice stays valid for the lifetime of the bus,
	// so a model may keep it to inspect its own registers from the hooks
	// below.
	InitializeRegisters(bank []byte) bool

	// ParseWriteRegister runs for every byte written through the generic
	// write path once the global read-only policy passed. It returns the
	// byte to commit, or ok=false to discard the write entirely.
	ParseWriteRegister(reg Register, value byte) (byte, bool)

	// ParseReadRegister may redirect a read to another register of the same
	// bank. Returning ok=false leaves the read at reg.
	ParseReadRegister(reg Register) (Register, bool)

	// OverrideReadRegister may blend live-computed bits into a read. When
	// ok=true the result is (stored &^ mask) | (value & mask).
	OverrideReadRegister(reg Register) (value byte, mask byte, ok bool)
}

// BaseDevice carries the immutable device identity and neutral hook
// behavior. Simple models embed it and implement only InitializeRegisters.
type BaseDevice struct {
	vendor uint16
	device uint16
}

func NewBaseDevice(vendor, device uint16) BaseDevice {
	return BaseDevice{vendor: vendor, device: device}
}

func (d *BaseDevice) VendorID() uint16 {
	return d.vendor
}

func (d *BaseDevice) DeviceID() uint16 {
	return d.device
}

func (d *BaseDevice) InitializeRegisters(bank []byte) bool {
	return true
}

func (d *BaseDevice) ParseWriteRegister(reg Register, value byte) (byte, bool) {
	return value, true
}

func (d *BaseDevice) ParseReadRegister(reg Register) (Register, bool) {
	return 0, false
}

func (d *BaseDevice) OverrideReadRegister(reg Register) (value byte, mask byte, ok bool) {
	return 0, 0, false
}
