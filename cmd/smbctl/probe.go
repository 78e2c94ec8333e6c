package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Locate the OSB4 SMBus host and report its state.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Printf("adapter:      %s\n", d.Name())
		fmt.Printf("base address: 0x%04x\n", d.Base())
		fmt.Printf("revision:     0x%02x\n", d.Revision())
		fmt.Printf("capabilities: %s\n", d.Controller().Capabilities())
		return nil
	},
}
