// Package driver owns the OSB4 controller lifecycle: PCI discovery,
// enable-bit verification, exclusive register window reservation and
// adapter registration, torn down in strict reverse order. There can only
// be one OSB4 in a system, with one SMBus interface, so setup is guarded
// process-wide.
package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyrange/smbhost/internal/osb4"
	"github.com/tinyrange/smbhost/internal/pci"
	"github.com/tinyrange/smbhost/internal/portio"
	"github.com/tinyrange/smbhost/internal/smbus"
)

// The OSB4 southbridge and its SMBus configuration registers.
const (
	VendorServerWorks = 0x1166
	DeviceOSB4        = 0x0200

	cfgSMBBA   = 0x90 // SMBus base address, word
	cfgHostCfg = 0xD2 // bit 0 enables the host controller
	cfgRev     = 0xD6
)

var (
	// ErrNoDevice reports that no OSB4 function 0 was found on the bus.
	ErrNoDevice = errors.New("no OSB4 southbridge found")

	// ErrDisabled reports a host controller firmware left disabled
	// while Force is not set.
	ErrDisabled = errors.New("SMBus host controller not enabled")

	// ErrBadBase reports a missing or misaligned SMBus base address.
	ErrBadBase = errors.New("invalid SMBus base address")

	// ErrAlreadySetup reports a second Setup before Teardown.
	ErrAlreadySetup = errors.New("driver already set up")
)

// Setup levels, torn down in reverse order.
const (
	levelNone    = iota
	levelRegion  // register window reserved
	levelAdapter // adapter registered
)

// OpenFunc opens the register window at base. It exists so tests and the
// simulator can substitute the port-backed implementation.
type OpenFunc func(base uint16, size uint8) (portio.Region, error)

var (
	setupMu sync.Mutex
	active  bool
)

// Driver is one live controller instance.
type Driver struct {
	level int
	base  uint16
	rev   byte
	name  string
	win   portio.Region
	ctrl  *osb4.Controller
	log   *slog.Logger
}

// Setup locates the OSB4 on bus, validates or forces its enable state,
// reserves the register window through open (portio.OpenDevPort when nil)
// and registers the adapter. A second Setup before Teardown is an error.
func Setup(bus pci.Bus, open OpenFunc, opts Options) (*Driver, error) {
	setupMu.Lock()
	defer setupMu.Unlock()
	if active {
		return nil, fmt.Errorf("driver: %w", ErrAlreadySetup)
	}
	if open == nil {
		open = portio.OpenDevPort
	}

	log := slog.Default()
	fn, base, err := locate(bus, &opts, log)
	if err != nil {
		return nil, err
	}

	win, err := open(base, osb4.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("driver: reserve window 0x%04x: %w", base, err)
	}

	d := &Driver{
		level: levelRegion,
		base:  base,
		name:  fmt.Sprintf("SMBus OSB4 adapter at %04x", base),
		win:   win,
		log:   log,
	}
	if rev, err := fn.ReadConfigByte(cfgRev); err == nil {
		d.rev = rev
	}

	ctrlOpts := []osb4.Option{osb4.WithLogger(log)}
	if opts.PollInterval > 0 {
		ctrlOpts = append(ctrlOpts, osb4.WithPollInterval(opts.PollInterval.Duration()))
	}
	if opts.MaxPolls > 0 {
		ctrlOpts = append(ctrlOpts, osb4.WithMaxPolls(opts.MaxPolls))
	}
	if opts.EnableInterrupt {
		ctrlOpts = append(ctrlOpts, osb4.WithInterruptSelect())
	}
	d.ctrl = osb4.New(win, ctrlOpts...)

	if err := smbus.Register(d.name, d.ctrl); err != nil {
		win.Close()
		return nil, fmt.Errorf("driver: register adapter: %w", err)
	}
	d.level = levelAdapter

	active = true
	log.Info("OSB4 SMBus host initialized",
		"location", fn.Location(),
		"base", fmt.Sprintf("0x%04x", base),
		"rev", fmt.Sprintf("0x%02x", d.rev))
	return d, nil
}

// locate finds OSB4 function 0 and resolves the SMBus base address and
// enable state per opts.
func locate(bus pci.Bus, opts *Options, log *slog.Logger) (pci.Function, uint16, error) {
	fns, err := bus.Find(VendorServerWorks, DeviceOSB4)
	if err != nil {
		return nil, 0, fmt.Errorf("driver: scan bus: %w", err)
	}
	// The SMBus host lives on function 0; keep searching until we have
	// it.
	var fn pci.Function
	for _, f := range fns {
		if pci.FunctionNumber(f.Location()) == 0 {
			fn = f
			break
		}
	}
	if fn == nil {
		return nil, 0, fmt.Errorf("driver: %w", ErrNoDevice)
	}

	var base uint16
	if opts.ForceAddr != 0 {
		base = opts.ForceAddr & 0xFFF0
		opts.Force = false
	} else {
		w, err := fn.ReadConfigWord(cfgSMBBA)
		if err != nil {
			return nil, 0, fmt.Errorf("driver: read SMBBA: %w", err)
		}
		base = w & 0xFFF0
	}
	if base == 0 {
		return nil, 0, fmt.Errorf("driver: %w", ErrBadBase)
	}

	cfg, err := fn.ReadConfigByte(cfgHostCfg)
	if err != nil {
		return nil, 0, fmt.Errorf("driver: read host config: %w", err)
	}

	switch {
	case opts.ForceAddr != 0:
		// Program the new base with the host block disabled, then
		// bring it back up.
		if err := fn.WriteConfigByte(cfgHostCfg, cfg&0xFE); err != nil {
			return nil, 0, fmt.Errorf("driver: disable host block: %w", err)
		}
		if err := fn.WriteConfigByte(cfgSMBBA, byte(base)); err != nil {
			return nil, 0, fmt.Errorf("driver: program SMBBA: %w", err)
		}
		if err := fn.WriteConfigByte(cfgSMBBA+1, byte(base>>8)); err != nil {
			return nil, 0, fmt.Errorf("driver: program SMBBA: %w", err)
		}
		if err := fn.WriteConfigByte(cfgHostCfg, cfg|0x01); err != nil {
			return nil, 0, fmt.Errorf("driver: enable host block: %w", err)
		}
		log.Warn("OSB4 SMBus interface moved to a new address",
			"base", fmt.Sprintf("0x%04x", base))
	case cfg&0x01 == 0:
		if !opts.Force {
			return nil, 0, fmt.Errorf("driver: %w", ErrDisabled)
		}
		// Assumes the BIOS did the I/O space allocation even though
		// it left the block disabled.
		if err := fn.WriteConfigByte(cfgHostCfg, cfg|0x01); err != nil {
			return nil, 0, fmt.Errorf("driver: force enable: %w", err)
		}
		log.Warn("OSB4 SMBus interface has been forcefully enabled")
	}

	return fn, base, nil
}

// Teardown releases everything Setup acquired, in reverse order. It is
// idempotent.
func (d *Driver) Teardown() error {
	setupMu.Lock()
	defer setupMu.Unlock()

	if d.level >= levelAdapter {
		smbus.Unregister(d.name)
		d.level = levelRegion
	}
	var err error
	if d.level >= levelRegion {
		err = d.win.Close()
		d.level = levelNone
		active = false
	}
	return err
}

// Controller returns the adapter facade.
func (d *Driver) Controller() *osb4.Controller { return d.ctrl }

// Base returns the resolved I/O base address.
func (d *Driver) Base() uint16 { return d.base }

// Revision returns the SMBus revision register read at setup.
func (d *Driver) Revision() byte { return d.rev }

// Name returns the registered adapter name.
func (d *Driver) Name() string { return d.name }
