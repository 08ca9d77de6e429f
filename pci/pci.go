// Package pci emulates the PCI configuration space controller of an x86
// chipset: the address latch on port 0xCF8, the four data ports at
// 0xCFC-0xCFF (configuration mechanism #1) and the per-slot, per-function
// register banks behind them.
//
// The package is single-threaded by design. Every port access and every
// registration happens on the machine's IO dispatch context, so no locking
// is needed anywhere.
//
// refs
// https://wiki.osdev.org/PCI
// http://www2.comp.ufscar.br/~helio/boot-int/pci.html
package pci

import (
	"errors"
	"fmt"

	"github.com/hmachida/pcibus/callback"
	"github.com/hmachida/pcibus/iobus"
)

// PCI address latch layout:
// 31    - set for an enabled access
// 30-24 - 0
// 23-16 - bus number        (0x00ff0000)
// 15-11 - device number     (0x0000f800)
// 10- 8 - function number   (0x00000700)
//  7- 2 - register number   (0x000000fc)
const (
	enableMask  = 0x80ff0000
	enableMatch = 0x80000000
)

var (
	ErrDeviceNil        = errors.New("pci device is nil")
	ErrSlotInvalid      = errors.New("pci slot out of range")
	ErrNoFreeSlot       = errors.New("no free pci slot")
	ErrTooManyFunctions = errors.New("pci slot has no free function")
	ErrDeviceInitFailed = errors.New("pci device rejected register initialization")
)

// PortDispatcher is the host's IO port dispatch as seen from the bus: just
// enough to install and remove the configuration port handlers.
type PortDispatcher interface {
	Register(dev iobus.Device) error
	Unregister(dev iobus.Device)
}

// attached binds a registered device to its resolved bus identity. The
// function-0 entry of a slot additionally owns the secondary functions,
// filled contiguously; the protocol never nests deeper than one level.
type attached struct {
	dev  Device
	slot Slot
	fn   Function

	subs    [maxSubdevices]*attached
	numSubs uint8
}

func (a *attached) addSubdevice(sub *attached) {
	if a.numSubs >= maxSubdevices {
		panic("pci: too many subdevices")
	}

	if a.subs[a.numSubs] != nil {
		panic("pci: subdevice slot already in use")
	}

	a.subs[a.numSubs] = sub
	a.numSubs++
}

// subdevice resolves a function number to the owning attached device.
// Function 0 is the primary itself; 1..numSubs address the secondaries.
func (a *attached) subdevice(fn Function) *attached {
	if !fn.Valid() {
		return nil
	}

	if fn == 0 {
		return a
	}

	if uint8(fn) <= a.numSubs {
		return a.subs[fn-1]
	}

	return nil
}

// Bus is the configuration space controller. It owns the register banks and
// the slot table, decodes the address latch and applies the generic register
// access policy before handing a register off to the device hooks.
type Bus struct {
	ports     PortDispatcher
	callbacks *callback.Table

	latch     uint32
	store     ConfigStore
	slots     [NumSlots]*attached
	installed uint8

	initialized bool

	addrPort *ConfAddrPort
	dataPort *ConfDataPort
}

// New constructs an uninitialized bus. Port handlers and the pmode service
// callback are installed lazily by the first registration. Devices queued
// before the bus existed are registered right away, in arrival order.
func New(ports PortDispatcher, callbacks *callback.Table) (*Bus, error) {
	b := &Bus{
		ports:     ports,
		callbacks: callbacks,
	}
	b.addrPort = &ConfAddrPort{bus: b}
	b.dataPort = &ConfDataPort{bus: b}

	for _, dev := range drainPending() {
		if _, err := b.Register(dev); err != nil {
			return nil, fmt.Errorf("queued device %04x:%04x: %w",
				dev.VendorID(), dev.DeviceID(), err)
		}
	}

	return b, nil
}

// Initialized reports whether the port handlers are installed.
func (b *Bus) Initialized() bool {
	return b.initialized
}

func (b *Bus) initialize() error {
	if err := b.ports.Register(b.addrPort); err != nil {
		return err
	}

	if err := b.ports.Register(b.dataPort); err != nil {
		b.ports.Unregister(b.addrPort)

		return err
	}

	b.store.Reset()

	if err := b.callbacks.InstallFixed(PModeServiceSlot, pmodeService, "PCI PM"); err != nil {
		b.ports.Unregister(b.addrPort)
		b.ports.Unregister(b.dataPort)

		return err
	}

	b.initialized = true

	return nil
}

// Register attaches a device to the next free slot and returns it.
func (b *Bus) Register(dev Device) (Slot, error) {
	return b.register(dev, 0, false)
}

// RegisterAt attaches a device to a specific slot. If the slot is occupied
// the device becomes the next secondary function of the slot's primary.
func (b *Bus) RegisterAt(dev Device, slot Slot) (Slot, error) {
	return b.register(dev, slot, true)
}

func (b *Bus) register(dev Device, slot Slot, explicit bool) (Slot, error) {
	if dev == nil {
		return 0, ErrDeviceNil
	}

	if explicit {
		if !slot.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrSlotInvalid, slot)
		}
	} else if b.installed >= NumSlots {
		return 0, ErrNoFreeSlot
	}

	if !b.initialized {
		if err := b.initialize(); err != nil {
			return 0, err
		}
	}

	if !explicit {
		slot = Slot(b.installed)
	}

	fn := Function(0)

	if primary := b.slots[slot]; primary != nil {
		if primary.numSubs >= maxSubdevices {
			return 0, fmt.Errorf("%w: slot %d", ErrTooManyFunctions, slot)
		}

		fn = Function(primary.numSubs + 1)
	}

	bank := b.store.Bank(slot, fn)
	if !dev.InitializeRegisters(bank) {
		for i := range bank {
			bank[i] = 0
		}

		return 0, fmt.Errorf("%w: %04x:%04x",
			ErrDeviceInitFailed, dev.VendorID(), dev.DeviceID())
	}

	a := &attached{dev: dev, slot: slot, fn: fn}

	if primary := b.slots[slot]; primary == nil {
		b.slots[slot] = a
		b.installed++
	} else {
		primary.addSubdevice(a)
	}

	return slot, nil
}

// Shutdown removes the port handlers and the pmode callback and resets the
// latch, the register banks, the slot table and the pending queue. It is
// safe to call on a bus that never initialized, and safe to call twice.
func (b *Bus) Shutdown() {
	if b.initialized {
		b.ports.Unregister(b.addrPort)
		b.ports.Unregister(b.dataPort)
		b.callbacks.Uninstall(PModeServiceSlot)
	}

	b.store.Reset()
	b.latch = 0

	for i := range b.slots {
		b.slots[i] = nil
	}

	b.installed = 0
	resetPending()
	b.initialized = false
}

// ConfAddrOut latches a new configuration address. Only full dword writes to
// the base port take effect; the latch is stored verbatim, validation
// happens on data port access.
func (b *Bus) ConfAddrOut(port uint64, data []byte) error {
	if port != ConfAddrPortBase || len(data) != 4 {
		return nil
	}

	b.latch = uint32(data[0]) |
		uint32(data[1])<<8 |
		uint32(data[2])<<16 |
		uint32(data[3])<<24

	return nil
}

// ConfAddrIn returns the latched configuration address verbatim.
func (b *Bus) ConfAddrIn(port uint64, data []byte) error {
	if port != ConfAddrPortBase || len(data) != 4 {
		return nil
	}

	data[0] = byte(b.latch)
	data[1] = byte(b.latch >> 8)
	data[2] = byte(b.latch >> 16)
	data[3] = byte(b.latch >> 24)

	return nil
}

// resolve decodes the latch into the addressed device, or nil when the
// access misses. The function bound intentionally allows fn == numSubs:
// secondary functions are numbered 1..numSubs, so the last valid index
// equals the count. Guest software may depend on this exact boundary.
func (b *Bus) resolve() *attached {
	devnum := Slot((b.latch >> 11) & 0x1f)
	fn := Function((b.latch >> 8) & 0x7)

	if uint8(devnum) >= b.installed {
		return nil
	}

	primary := b.slots[devnum]
	if primary == nil {
		return nil
	}

	if uint8(fn) > primary.numSubs {
		return nil
	}

	return primary.subdevice(fn)
}

// ConfDataOut writes 1, 2 or 4 bytes to the addressed configuration
// registers, one byte lane at a time. Disabled or invalid accesses are
// dropped silently, like writes to an empty slot on real hardware.
func (b *Bus) ConfDataOut(port uint64, data []byte) error {
	if b.latch&enableMask != enableMatch {
		return nil
	}

	target := b.resolve()
	if target == nil {
		return nil
	}

	reg := Register(b.latch&0xfc) + Register(port&0x3)
	for i, value := range data {
		b.writeRegister(target, reg+Register(i), value)
	}

	return nil
}

// ConfDataIn reads 1, 2 or 4 bytes from the addressed configuration
// registers, composing the result little-endian. Disabled or invalid
// accesses float to all-ones.
func (b *Bus) ConfDataIn(port uint64, data []byte) error {
	target := (*attached)(nil)
	if b.latch&enableMask == enableMatch {
		target = b.resolve()
	}

	if target == nil {
		for i := range data {
			data[i] = 0xff
		}

		return nil
	}

	reg := Register(b.latch&0xfc) + Register(port&0x3)
	for i := range data {
		data[i] = b.readRegister(target, reg+Register(i))
	}

	return nil
}

// writeRegister applies the generic write policy, then lets the device hook
// veto or transform the byte before it is committed.
func (b *Bus) writeRegister(a *attached, reg Register, value byte) {
	// vendor/device/class IDs/header type/etc. are read-only
	if reg < 0x04 || (reg >= 0x06 && reg < 0x0c) || reg == 0x0e {
		return
	}

	// header-type specific handling
	if b.store.At(a.slot, a.fn, 0x0e)&0x7f == 0x00 {
		if reg >= 0x28 && reg < 0x30 {
			return // subsystem information is read-only
		}
	}

	if parsed, ok := a.dev.ParseWriteRegister(reg, value); ok {
		b.store.Set(a.slot, a.fn, reg, parsed)
	}
}

// readRegister reads a single register with special register treatment: the
// identity registers come from the device object, the header type byte
// carries the synthesized multi-function bit, everything else runs through
// the device's remap and override hooks before falling back to the bank.
func (b *Bus) readRegister(a *attached, reg Register) byte {
	switch reg {
	case 0x00:
		return byte(a.dev.VendorID())
	case 0x01:
		return byte(a.dev.VendorID() >> 8)
	case 0x02:
		return byte(a.dev.DeviceID())
	case 0x03:
		return byte(a.dev.DeviceID() >> 8)
	case 0x0e:
		value := b.store.At(a.slot, a.fn, reg) & 0x7f
		if a.numSubs > 0 {
			value |= 0x80
		}

		return value
	}

	if remapped, ok := a.dev.ParseReadRegister(reg); ok {
		return b.store.At(a.slot, a.fn, remapped)
	}

	if value, mask, ok := a.dev.OverrideReadRegister(reg); ok {
		stored := b.store.At(a.slot, a.fn, reg) &^ mask

		return stored | (value & mask)
	}

	return b.store.At(a.slot, a.fn, reg)
}

// CFGData returns the stored configuration byte of (slot, fn, reg) without
// going through the port protocol. Unpopulated locations float to 0xff.
func (b *Bus) CFGData(slot Slot, fn Function, reg Register) byte {
	if !slot.Valid() || !fn.Valid() {
		return 0xff
	}

	return b.store.At(slot, fn, reg)
}
