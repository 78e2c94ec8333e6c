package pci

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SysfsBus enumerates PCI functions through the Linux sysfs tree. The
// zero value uses /sys/bus/pci/devices; Root exists so tests can point it
// at a fixture directory.
type SysfsBus struct {
	Root string
}

const sysfsDefaultRoot = "/sys/bus/pci/devices"

func (b *SysfsBus) root() string {
	if b.Root != "" {
		return b.Root
	}
	return sysfsDefaultRoot
}

// Find implements Bus.
func (b *SysfsBus) Find(vendor, device uint16) ([]Function, error) {
	entries, err := os.ReadDir(b.root())
	if err != nil {
		return nil, fmt.Errorf("pci: read %s: %w", b.root(), err)
	}

	var matches []Function
	for _, e := range entries {
		fn := &sysfsFunction{dir: filepath.Join(b.root(), e.Name()), name: e.Name()}
		v, err := fn.readIDFile("vendor")
		if err != nil {
			continue
		}
		d, err := fn.readIDFile("device")
		if err != nil {
			continue
		}
		if v == vendor && d == device {
			matches = append(matches, fn)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Location() < matches[j].Location()
	})
	return matches, nil
}

type sysfsFunction struct {
	dir  string
	name string
}

func (f *sysfsFunction) Location() string { return f.name }

// readIDFile parses a sysfs ID attribute such as "0x1166\n".
func (f *sysfsFunction) readIDFile(attr string) (uint16, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, attr))
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("pci: parse %s %q: %w", attr, s, err)
	}
	return uint16(v), nil
}

func (f *sysfsFunction) ReadConfigByte(off int) (byte, error) {
	var buf [1]byte
	if err := f.readConfig(off, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (f *sysfsFunction) ReadConfigWord(off int) (uint16, error) {
	var buf [2]byte
	if err := f.readConfig(off, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (f *sysfsFunction) WriteConfigByte(off int, v byte) error {
	cfg, err := os.OpenFile(filepath.Join(f.dir, "config"), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("pci: %s: %w", f.name, err)
	}
	defer cfg.Close()
	if _, err := cfg.WriteAt([]byte{v}, int64(off)); err != nil {
		return fmt.Errorf("pci: %s: write config 0x%02x: %w", f.name, off, err)
	}
	return nil
}

func (f *sysfsFunction) readConfig(off int, buf []byte) error {
	cfg, err := os.Open(filepath.Join(f.dir, "config"))
	if err != nil {
		return fmt.Errorf("pci: %s: %w", f.name, err)
	}
	defer cfg.Close()
	if _, err := cfg.ReadAt(buf, int64(off)); err != nil {
		return fmt.Errorf("pci: %s: read config 0x%02x: %w", f.name, off, err)
	}
	return nil
}

var (
	_ Bus      = (*SysfsBus)(nil)
	_ Function = (*sysfsFunction)(nil)
)
