package pci

import (
	"log"

	"github.com/hmachida/pcibus/callback"
)

// PModeServiceSlot is the callback slot holding the protected-mode PCI BIOS
// service stub. Serialized machine state references the handler by this
// position, so the number is a cross-version contract and must never change.
const PModeServiceSlot = 80

// pmodeService is invoked by the mode-switch trampoline when the guest calls
// the PCI BIOS in protected mode. Nothing is implemented; the stub reports
// the call and returns control to the guest.
func pmodeService() uint8 {
	log.Printf("pci: pmode service call")

	return callback.RetNone
}
