//go:build !linux

package portio

import "fmt"

// OpenDevPort is only implemented on Linux.
func OpenDevPort(base uint16, size uint8) (Region, error) {
	return nil, fmt.Errorf("portio: region 0x%04x: %w", base, ErrUnsupportedPlatform)
}
