package iobus

// NoopDevice claims a port range and ignores every access. Useful for port
// ranges the guest probes but nothing emulates, e.g. the PCI configuration
// mechanism #2 window.
type NoopDevice struct {
	Port  uint64
	Psize uint64
}

func (n *NoopDevice) Read(port uint64, data []byte) error {
	for i := range data {
		data[i] = 0xff
	}

	return nil
}

func (n *NoopDevice) Write(port uint64, data []byte) error {
	return nil
}

func (n *NoopDevice) IOPort() uint64 {
	return n.Port
}

func (n *NoopDevice) Size() uint64 {
	return n.Psize
}
