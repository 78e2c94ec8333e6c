// Package pci provides the minimal PCI configuration-space access the
// SMBus driver needs: find a function by vendor/device ID and read or
// write its config registers.
package pci

import (
	"strconv"
	"strings"
)

// Function is one PCI function's configuration space.
type Function interface {
	// Location identifies the function, e.g. "0000:00:0f.0".
	Location() string

	ReadConfigByte(off int) (byte, error)
	ReadConfigWord(off int) (uint16, error)
	WriteConfigByte(off int, v byte) error
}

// Bus enumerates PCI functions.
type Bus interface {
	// Find returns every function matching vendor and device, in bus
	// order. An empty result is not an error.
	Find(vendor, device uint16) ([]Function, error)
}

// FunctionNumber extracts the PCI function number from a location such as
// "0000:00:0f.2". Unparseable locations report 0xFF.
func FunctionNumber(location string) uint8 {
	i := strings.LastIndexByte(location, '.')
	if i < 0 || i+1 >= len(location) {
		return 0xFF
	}
	n, err := strconv.ParseUint(location[i+1:], 16, 8)
	if err != nil {
		return 0xFF
	}
	return uint8(n)
}
