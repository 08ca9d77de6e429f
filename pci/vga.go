package pci

// S3 Trio64 identity.
const (
	VGAVendorID = 0x5333
	VGADeviceID = 0x8811

	// DefaultFramebufferBase is where the linear framebuffer window of the
	// emulated adapter lives in guest physical memory.
	DefaultFramebufferBase = 0xc0000000

	vgaMMIOWindowOffset = 0x1000000
)

// VGADevice models the configuration space of an S3 Trio64 display adapter.
// The adapter's framebuffer and MMIO windows are fixed, so the model pins
// its base address registers: reprogramming attempts either stick to the
// initialized value or are discarded outright.
type VGADevice struct {
	BaseDevice

	fbBase uint32
	bank   []byte
}

// NewVGA returns a Trio64 model with its linear framebuffer at fbBase.
func NewVGA(fbBase uint32) *VGADevice {
	return &VGADevice{
		BaseDevice: NewBaseDevice(VGAVendorID, VGADeviceID),
		fbBase:     fbBase,
	}
}

func (v *VGADevice) InitializeRegisters(bank []byte) bool {
	v.bank = bank

	bank[0x08] = 0x00 // revision ID
	bank[0x09] = 0x00 // interface
	bank[0x0a] = 0x00 // subclass type (vga compatible)
	bank[0x0b] = 0x03 // class type (display controller)
	bank[0x0c] = 0x00 // cache line size
	bank[0x0d] = 0x00 // latency timer
	bank[0x0e] = 0x00 // header type (other)

	bank[0x04] = 0x23 // command register (vga palette snoop, ports enabled, memory space enabled)
	bank[0x05] = 0x00
	bank[0x06] = 0x80 // status register (medium timing, fast back-to-back)
	bank[0x07] = 0x02

	// memory space, within first 4GB
	fb := v.fbBase & 0xfffffff0
	bank[0x10] = byte(fb)
	bank[0x11] = byte(fb >> 8)
	bank[0x12] = byte(fb >> 16)
	bank[0x13] = byte(fb >> 24)

	mmio := (v.fbBase + vgaMMIOWindowOffset) & 0xfffffff0
	bank[0x14] = byte(mmio)
	bank[0x15] = byte(mmio >> 8)
	bank[0x16] = byte(mmio >> 16)
	bank[0x17] = byte(mmio >> 24)

	return true
}

func (v *VGADevice) ParseWriteRegister(reg Register, value byte) (byte, bool) {
	if reg >= 0x18 && reg < 0x28 {
		return 0, false // remaining base addresses are read-only
	}

	if reg >= 0x30 && reg < 0x34 {
		return 0, false // expansion rom addresses are read-only
	}

	switch reg {
	case 0x10:
		return v.bank[0x10] & 0x0f, true
	case 0x11:
		return 0x00, true
	case 0x12:
		return 0x00, true // -> 16mb addressable
	case 0x13:
		return value, true
	case 0x14:
		return v.bank[0x10] & 0x0f, true
	case 0x15:
		return 0x00, true
	case 0x16:
		return value, true // -> 64kb addressable
	case 0x17:
		return value, true
	}

	return value, true
}

func (v *VGADevice) ParseReadRegister(reg Register) (Register, bool) {
	return reg, true
}
