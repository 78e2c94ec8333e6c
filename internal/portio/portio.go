// Package portio provides byte-wide access to small I/O-port register
// windows behind a narrow interface, so protocol code runs unchanged
// against real hardware or an in-memory register file.
package portio

import (
	"errors"
	"fmt"
)

var (
	// ErrRegionBusy reports that another process already owns the
	// register window.
	ErrRegionBusy = errors.New("I/O region already claimed")

	// ErrUnsupportedPlatform reports that raw port access is not
	// available on this OS.
	ErrUnsupportedPlatform = errors.New("port I/O not supported on this platform")
)

// Region is an exclusively owned window of byte-wide registers addressed
// by offset from an implicit base.
type Region interface {
	ReadReg(off uint8) (byte, error)
	WriteReg(off uint8, v byte) error
	Close() error
}

// MemSize is the register count of an in-memory region.
const MemSize = 16

// Mem is an in-memory register file. It has no side effects on access and
// is meant for wiring and tests that do not need device behavior.
type Mem struct {
	Regs   [MemSize]byte
	closed bool
}

func (m *Mem) ReadReg(off uint8) (byte, error) {
	if off >= MemSize {
		return 0, fmt.Errorf("portio: read offset 0x%02x out of range", off)
	}
	return m.Regs[off], nil
}

func (m *Mem) WriteReg(off uint8, v byte) error {
	if off >= MemSize {
		return fmt.Errorf("portio: write offset 0x%02x out of range", off)
	}
	m.Regs[off] = v
	return nil
}

func (m *Mem) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *Mem) Closed() bool { return m.closed }

var _ Region = (*Mem)(nil)
