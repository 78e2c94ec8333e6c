package pci

import (
	"encoding/binary"
	"fmt"
)

// FakeBus is an in-memory PCI bus for tests and the simulated controller.
type FakeBus struct {
	funcs []*FakeFunction
}

// Add attaches a function to the bus.
func (b *FakeBus) Add(f *FakeFunction) {
	b.funcs = append(b.funcs, f)
}

// Find implements Bus.
func (b *FakeBus) Find(vendor, device uint16) ([]Function, error) {
	var matches []Function
	for _, f := range b.funcs {
		v := binary.LittleEndian.Uint16(f.Config[0:2])
		d := binary.LittleEndian.Uint16(f.Config[2:4])
		if v == vendor && d == device {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

// FakeFunction is a 256-byte configuration space with optional read-only
// registers.
type FakeFunction struct {
	Loc      string
	Config   [256]byte
	ReadOnly map[int]bool
}

// NewFakeFunction builds a function at loc with the vendor and device ID
// registers populated.
func NewFakeFunction(loc string, vendor, device uint16) *FakeFunction {
	f := &FakeFunction{Loc: loc}
	binary.LittleEndian.PutUint16(f.Config[0:2], vendor)
	binary.LittleEndian.PutUint16(f.Config[2:4], device)
	return f
}

func (f *FakeFunction) Location() string { return f.Loc }

func (f *FakeFunction) ReadConfigByte(off int) (byte, error) {
	if off < 0 || off >= len(f.Config) {
		return 0, fmt.Errorf("pci: %s: config offset 0x%x out of range", f.Loc, off)
	}
	return f.Config[off], nil
}

func (f *FakeFunction) ReadConfigWord(off int) (uint16, error) {
	if off < 0 || off+1 >= len(f.Config) {
		return 0, fmt.Errorf("pci: %s: config offset 0x%x out of range", f.Loc, off)
	}
	return binary.LittleEndian.Uint16(f.Config[off : off+2]), nil
}

func (f *FakeFunction) WriteConfigByte(off int, v byte) error {
	if off < 0 || off >= len(f.Config) {
		return fmt.Errorf("pci: %s: config offset 0x%x out of range", f.Loc, off)
	}
	if f.ReadOnly[off] {
		return nil
	}
	f.Config[off] = v
	return nil
}

var (
	_ Bus      = (*FakeBus)(nil)
	_ Function = (*FakeFunction)(nil)
)
