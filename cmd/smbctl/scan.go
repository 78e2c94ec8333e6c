package main

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tinyrange/smbhost/internal/osb4"
	"github.com/tinyrange/smbhost/internal/smbus"
)

// Addresses below 0x03 and above 0x77 are reserved by the SMBus spec.
const (
	scanFirst = 0x03
	scanLast  = 0x77
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the bus for responding targets.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDriver()
		if err != nil {
			return err
		}
		defer cleanup()
		ctrl := d.Controller()

		bar := progressbar.NewOptions(scanLast-scanFirst+1,
			progressbar.OptionSetDescription("scanning"),
			progressbar.OptionClearOnFinish(),
		)

		var found []uint8
		for addr := uint8(scanFirst); addr <= scanLast; addr++ {
			err := ctrl.Quick(addr, smbus.Write)
			bar.Add(1)
			if err == nil {
				found = append(found, addr)
				continue
			}
			var terr *osb4.TransactionError
			if errors.As(err, &terr) && terr.Outcome.NoResponse {
				continue
			}
			// Anything other than a missing acknowledge ends the
			// sweep; a collision can wedge the bus.
			bar.Clear()
			return fmt.Errorf("scan aborted at 0x%02x: %w", addr, err)
		}
		bar.Clear()

		if len(found) == 0 {
			fmt.Println("no targets found")
			return nil
		}
		for _, addr := range found {
			fmt.Printf("0x%02x\n", addr)
		}
		return nil
	},
}
