package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hmachida/pcibus/callback"
	"github.com/hmachida/pcibus/iobus"
	"github.com/hmachida/pcibus/manifest"
	"github.com/hmachida/pcibus/pci"
)

var dumpManifest string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Enumerate the emulated bus and list its devices",
	Long: `Builds the machine's IO port dispatch, registers the display adapter and
every manifest device, then enumerates bus 0 the way a guest BIOS would:
address latch writes on 0xCF8 followed by data reads on 0xCFC.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &manifest.Config{Machine: manifest.MachineSVGA}

		if dumpManifest != "" {
			c, err := manifest.Load(dumpManifest)
			if err != nil {
				return err
			}

			cfg = c
		}

		if !cfg.PCICapable() {
			fmt.Println("machine configuration carries no PCI bus")

			return nil
		}

		ports := iobus.New()

		// BIOS POST codes and the mechanism #2 probe window.
		if err := ports.Register(&iobus.PostCodeDevice{}); err != nil {
			return err
		}

		if err := ports.Register(&iobus.NoopDevice{Port: 0xc000, Psize: 0xf00}); err != nil {
			return err
		}

		// The display adapter asks for its slot before the bus exists,
		// going through the pending registration queue like it does during
		// real machine setup.
		if err := pci.QueueDevice(pci.NewVGA(pci.DefaultFramebufferBase)); err != nil {
			return err
		}

		bus, err := pci.New(ports, callback.NewTable())
		if err != nil {
			return err
		}
		defer bus.Shutdown()

		for _, spec := range cfg.Devices {
			dev := manifest.NewDevice(spec)

			if spec.Slot != nil {
				_, err = bus.RegisterAt(dev, pci.Slot(*spec.Slot))
			} else {
				_, err = bus.Register(dev)
			}

			if err != nil {
				return fmt.Errorf("register %s: %w", spec.Name, err)
			}
		}

		return enumerate(ports, os.Stdout)
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpManifest, "manifest", "f", "", "device manifest (yaml)")
	rootCmd.AddCommand(dumpCmd)
}

// confRead performs one configuration read through the emulated ports.
func confRead(ports *iobus.Bus, slot, fn, reg uint8, size int) (uint32, error) {
	addr := uint32(0x80000000) | uint32(slot)<<11 | uint32(fn)<<8 | uint32(reg&0xfc)

	latch := []byte{byte(addr), byte(addr >> 8), byte(addr >> 16), byte(addr >> 24)}
	if err := ports.Out(pci.ConfAddrPortBase, latch); err != nil {
		return 0, err
	}

	data := make([]byte, size)
	if err := ports.In(pci.ConfDataPortBase+uint64(reg&0x3), data); err != nil {
		return 0, err
	}

	value := uint32(0)
	for i, b := range data {
		value |= uint32(b) << (8 * i)
	}

	return value, nil
}

func enumerate(ports *iobus.Bus, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tFN\tVENDOR\tDEVICE\tCLASS\tHEADER")

	count := 0

	for slot := uint8(0); slot < pci.NumSlots; slot++ {
		vendor, err := confRead(ports, slot, 0, 0x00, 2)
		if err != nil {
			return err
		}

		if vendor == 0xffff {
			continue
		}

		header, err := printFunction(tw, ports, slot, 0)
		if err != nil {
			return err
		}

		count++

		if header&0x80 == 0 {
			continue
		}

		for fn := uint8(1); fn < pci.NumFunctions; fn++ {
			vendor, err := confRead(ports, slot, fn, 0x00, 2)
			if err != nil {
				return err
			}

			if vendor == 0xffff {
				continue
			}

			if _, err := printFunction(tw, ports, slot, fn); err != nil {
				return err
			}

			count++
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d functions\n", count)

	return nil
}

func printFunction(tw io.Writer, ports *iobus.Bus, slot, fn uint8) (uint32, error) {
	vendor, err := confRead(ports, slot, fn, 0x00, 2)
	if err != nil {
		return 0, err
	}

	device, err := confRead(ports, slot, fn, 0x02, 2)
	if err != nil {
		return 0, err
	}

	class, err := confRead(ports, slot, fn, 0x08, 4)
	if err != nil {
		return 0, err
	}

	header, err := confRead(ports, slot, fn, 0x0e, 1)
	if err != nil {
		return 0, err
	}

	fmt.Fprintf(tw, "%02x\t%x\t%04x\t%04x\t%06x\t%02x\n",
		slot, fn, vendor, device, class>>8, header)

	return header, nil
}
