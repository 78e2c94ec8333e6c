// Command smbctl pokes SMBus devices through the OSB4 host controller
// driver. It can also run against a fully simulated controller (--sim) for
// development on machines without the hardware.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tinyrange/smbhost/internal/driver"
	"github.com/tinyrange/smbhost/internal/osb4/osb4sim"
	"github.com/tinyrange/smbhost/internal/pci"
	"github.com/tinyrange/smbhost/internal/portio"
)

var (
	flagConfig string
	flagSim    bool
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "smbctl",
	Short: "Inspect and exercise SMBus devices behind the OSB4 host controller.",
	Long: `smbctl drives the ServerWorks OSB4 SMBus host controller: probe the
southbridge, scan the bus for targets and run individual read, write and
quick transactions. With --sim all commands run against a simulated
controller with a small set of canned target devices.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagDebug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML options file (force, force_addr, poll settings)")
	rootCmd.PersistentFlags().BoolVar(&flagSim, "sim", false, "Run against a simulated controller")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(probeCmd, readCmd, writeCmd, quickCmd, scanCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDriver sets up the controller per the global flags. The returned
// cleanup tears the driver down.
func openDriver() (*driver.Driver, func(), error) {
	var opts driver.Options
	if flagConfig != "" {
		var err error
		opts, err = driver.LoadOptions(flagConfig)
		if err != nil {
			return nil, nil, err
		}
	}

	var bus pci.Bus
	var open driver.OpenFunc
	if flagSim {
		bus, open = simBackend()
	} else {
		bus = &pci.SysfsBus{}
	}

	d, err := driver.Setup(bus, open, opts)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := d.Teardown(); err != nil {
			slog.Warn("teardown failed", "err", err)
		}
	}
	return d, cleanup, nil
}

// simBackend fakes the PCI side of discovery and hands out a simulated
// controller with a few canned targets: a 256-byte EEPROM at 0x50 and a
// sensor-shaped register device at 0x2d.
func simBackend() (pci.Bus, driver.OpenFunc) {
	fn := pci.NewFakeFunction("0000:00:0f.0", driver.VendorServerWorks, driver.DeviceOSB4)
	fn.Config[0x90] = 0x80 // SMBBA = 0x0580
	fn.Config[0x91] = 0x05
	fn.Config[0xD2] = 0x01 // host controller enabled
	fn.Config[0xD6] = 0x02

	bus := &pci.FakeBus{}
	bus.Add(fn)

	eeprom := osb4sim.NewEEPROM([]byte("smbhost simulated eeprom"))
	sensor := &osb4sim.RegTarget{}
	sensor.Regs[0x00] = 0x2a // temperature
	sensor.Regs[0x06] = 0x7f // configuration
	sensor.Regs[0x3e] = 0x41 // manufacturer ID

	sim := osb4sim.New(
		osb4sim.WithTarget(0x50, eeprom),
		osb4sim.WithTarget(0x2d, sensor),
	)
	return bus, func(base uint16, size uint8) (portio.Region, error) {
		return sim, nil
	}
}

// parseByte accepts decimal or 0x-prefixed values for addresses, registers
// and data bytes.
func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte value %q", s)
	}
	return uint8(v), nil
}
