package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

var (
	cpuProfile bool
	profiler   interface{ Stop() }
)

var rootCmd = &cobra.Command{
	Use:   "pcibus",
	Short: "PCI configuration space emulator",
	Long: `pcibus emulates the PCI configuration mechanism #1 of an x86 chipset:
an address latch on port 0xCF8 and four data ports at 0xCFC-0xCFF, backed by
per-slot, per-function register banks.

A device manifest describes the adapters on the bus; the dump command runs a
full enumeration through the emulated ports.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cpuProfile {
			profiler = profile.Start(profile.ProfilePath("."))
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&cpuProfile, "profile", false,
		"write a cpu profile to the current directory")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
