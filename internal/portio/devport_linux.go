//go:build linux

package portio

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// devPort accesses an I/O-port window through /dev/port. Exclusive
// ownership of the window is enforced with a per-base advisory lock so two
// driver instances cannot claim the same controller.
type devPort struct {
	fd     int
	lockFd int
	base   uint16
	size   uint8
}

// OpenDevPort claims the size-byte window at base and returns a Region
// backed by /dev/port. It fails with ErrRegionBusy when another process
// holds the window.
func OpenDevPort(base uint16, size uint8) (Region, error) {
	lockPath := filepath.Join(os.TempDir(), fmt.Sprintf("smbhost-%04x.lock", base))
	lockFd, err := unix.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("portio: open lock %s: %w", lockPath, err)
	}
	if err := unix.Flock(lockFd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(lockFd)
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("portio: region 0x%04x: %w", base, ErrRegionBusy)
		}
		return nil, fmt.Errorf("portio: lock region 0x%04x: %w", base, err)
	}

	fd, err := unix.Open("/dev/port", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(lockFd)
		return nil, fmt.Errorf("portio: open /dev/port: %w", err)
	}

	return &devPort{fd: fd, lockFd: lockFd, base: base, size: size}, nil
}

func (p *devPort) ReadReg(off uint8) (byte, error) {
	if off >= p.size {
		return 0, fmt.Errorf("portio: read offset 0x%02x outside window of %d", off, p.size)
	}
	var buf [1]byte
	if _, err := unix.Pread(p.fd, buf[:], int64(p.base)+int64(off)); err != nil {
		return 0, fmt.Errorf("portio: read port 0x%04x: %w", p.base+uint16(off), err)
	}
	return buf[0], nil
}

func (p *devPort) WriteReg(off uint8, v byte) error {
	if off >= p.size {
		return fmt.Errorf("portio: write offset 0x%02x outside window of %d", off, p.size)
	}
	if _, err := unix.Pwrite(p.fd, []byte{v}, int64(p.base)+int64(off)); err != nil {
		return fmt.Errorf("portio: write port 0x%04x: %w", p.base+uint16(off), err)
	}
	return nil
}

func (p *devPort) Close() error {
	err := unix.Close(p.fd)
	// Dropping the lock releases the window for the next claimant.
	unix.Flock(p.lockFd, unix.LOCK_UN)
	if cerr := unix.Close(p.lockFd); err == nil {
		err = cerr
	}
	return err
}

var _ Region = (*devPort)(nil)
