package pci

import (
	"errors"
	"sync"
)

// Devices may request a bus slot before the host has constructed the bus,
// e.g. during early machine setup. Those requests park in a bounded queue
// that the next New drains in FIFO order. The queue is process-wide state
// only while no bus exists; once a bus has been constructed it is empty.
// The mutex covers nothing but this registry; the bus itself stays
// single-threaded.

const maxPendingDevices = 16

var ErrQueueFull = errors.New("pending pci registration queue is full")

var (
	pendingMu      sync.Mutex
	pendingDevices []Device
)

// QueueDevice parks a device until a bus exists. Overflowing the queue drops
// the device and reports it.
func QueueDevice(dev Device) error {
	if dev == nil {
		return ErrDeviceNil
	}

	pendingMu.Lock()
	defer pendingMu.Unlock()

	if len(pendingDevices) >= maxPendingDevices {
		return ErrQueueFull
	}

	pendingDevices = append(pendingDevices, dev)

	return nil
}

// PendingDevices reports how many devices are waiting for a bus.
func PendingDevices() int {
	pendingMu.Lock()
	defer pendingMu.Unlock()

	return len(pendingDevices)
}

func drainPending() []Device {
	pendingMu.Lock()
	defer pendingMu.Unlock()

	devs := pendingDevices
	pendingDevices = nil

	return devs
}

func resetPending() {
	pendingMu.Lock()
	defer pendingMu.Unlock()

	pendingDevices = nil
}
