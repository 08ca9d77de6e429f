package iobus

import (
	"errors"
	"fmt"
)

const numPorts = 0x10000

var (
	ErrPortClaimed   = errors.New("io port already claimed")
	ErrPortUnhandled = errors.New("no device registered for io port")
	ErrRangeInvalid  = errors.New("io port range is invalid")
)

// Device describes the interface an IO-Port device must implement regardless
// of the bus it is attached to. A device claims the contiguous port range
// [IOPort, IOPort+Size).
type Device interface {
	Read(port uint64, data []byte) error
	Write(port uint64, data []byte) error
	IOPort() uint64
	Size() uint64
}

// Bus routes port IO to registered devices.
type Bus struct {
	ports [numPorts]Device
}

func New() *Bus {
	return &Bus{}
}

// Register claims the device's port range. The range must be free in full;
// a partial claim never happens.
func (b *Bus) Register(dev Device) error {
	start, size := dev.IOPort(), dev.Size()
	if size == 0 || start+size > numPorts {
		return fmt.Errorf("%w: 0x%x+0x%x", ErrRangeInvalid, start, size)
	}

	for port := start; port < start+size; port++ {
		if b.ports[port] != nil {
			return fmt.Errorf("%w: 0x%x", ErrPortClaimed, port)
		}
	}

	for port := start; port < start+size; port++ {
		b.ports[port] = dev
	}

	return nil
}

// Unregister releases every port held by the device. Unknown devices are
// ignored, so releasing twice is harmless.
func (b *Bus) Unregister(dev Device) {
	for port := range b.ports {
		if b.ports[port] == dev {
			b.ports[port] = nil
		}
	}
}

// In dispatches a port read to the owning device.
func (b *Bus) In(port uint64, data []byte) error {
	if port >= numPorts || b.ports[port] == nil {
		return fmt.Errorf("%w: 0x%x", ErrPortUnhandled, port)
	}

	return b.ports[port].Read(port, data)
}

// Out dispatches a port write to the owning device.
func (b *Bus) Out(port uint64, data []byte) error {
	if port >= numPorts || b.ports[port] == nil {
		return fmt.Errorf("%w: 0x%x", ErrPortUnhandled, port)
	}

	return b.ports[port].Write(port, data)
}
