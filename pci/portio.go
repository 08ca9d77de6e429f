package pci

// The two configuration ports of mechanism #1. The address latch occupies
// the dword at 0xCF8; the data window occupies 0xCFC-0xCFF, with the low
// two bits of the port selecting the starting byte lane of the addressed
// register.
const (
	ConfAddrPortBase = 0xcf8
	ConfDataPortBase = 0xcfc

	confPortSize = 4
)

// ConfAddrPort adapts the address latch to the host's IO port dispatch.
type ConfAddrPort struct {
	bus *Bus
}

func (p *ConfAddrPort) Read(port uint64, data []byte) error {
	return p.bus.ConfAddrIn(port, data)
}

func (p *ConfAddrPort) Write(port uint64, data []byte) error {
	return p.bus.ConfAddrOut(port, data)
}

func (p *ConfAddrPort) IOPort() uint64 {
	return ConfAddrPortBase
}

func (p *ConfAddrPort) Size() uint64 {
	return confPortSize
}

// ConfDataPort adapts the four data byte lanes to the host's IO port
// dispatch.
type ConfDataPort struct {
	bus *Bus
}

func (p *ConfDataPort) Read(port uint64, data []byte) error {
	return p.bus.ConfDataIn(port, data)
}

func (p *ConfDataPort) Write(port uint64, data []byte) error {
	return p.bus.ConfDataOut(port, data)
}

func (p *ConfDataPort) IOPort() uint64 {
	return ConfDataPortBase
}

func (p *ConfDataPort) Size() uint64 {
	return confPortSize
}
