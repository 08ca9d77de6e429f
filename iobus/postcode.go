package iobus

import (
	"io"
	"os"
)

const postCodePort = 0x80

// PostCodeDevice sinks BIOS POST codes written to port 0x80.
type PostCodeDevice struct {
	W io.Writer
}

func (p *PostCodeDevice) Read(port uint64, data []byte) error {
	return nil
}

func (p *PostCodeDevice) Write(port uint64, data []byte) error {
	if len(data) != 1 {
		return nil
	}

	w := p.W
	if w == nil {
		w = os.Stdout
	}

	if data[0] == '\000' {
		_, err := io.WriteString(w, "\r\n")

		return err
	}

	_, err := w.Write(data[:1])

	return err
}

func (p *PostCodeDevice) IOPort() uint64 {
	return postCodePort
}

func (p *PostCodeDevice) Size() uint64 {
	return 0x1
}
