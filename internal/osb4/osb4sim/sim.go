// Package osb4sim models the OSB4 SMBus host block in software. It
// implements portio.Region, so the driver's encoder and transaction engine
// run against it unchanged, and it reproduces the behavior that matters:
// latched write-one-to-clear status, a busy window after the start bit,
// the block pointer reset on Control reads and pluggable target devices on
// the simulated bus.
package osb4sim

import (
	"fmt"
	"sync"

	"github.com/tinyrange/smbhost/internal/osb4"
	"github.com/tinyrange/smbhost/internal/smbus"
)

// Target is a device on the simulated bus. For write transfers data holds
// the payload (nil for Quick and Byte); the returned slice is the read
// payload for read transfers. A Target error is reported to the host as a
// missing acknowledge.
type Target interface {
	Transfer(kind smbus.Kind, rw smbus.RW, cmd byte, data []byte) ([]byte, error)
}

// Snapshot captures the register state at the moment the last transaction
// was started, for tests that assert on the encoded state.
type Snapshot struct {
	Control byte // includes the start bit
	Address byte
	Command byte
	Data0   byte
	Data1   byte
	Block   []byte
}

// Sim is the simulated host block.
type Sim struct {
	mu sync.Mutex

	regs     [16]byte
	status   byte // latched status bits, write-one-to-clear
	stuck    byte // status bits that refuse to clear
	block    [smbus.BlockMax]byte
	blockIdx int

	busyPolls   int // Status reads reporting busy after each start
	busyLeft    int
	busyForever bool

	forceCollision bool
	forceBusError  bool

	targets map[uint8]Target
	last    Snapshot
	closed  bool
}

// Option customises the simulator.
type Option func(*Sim)

// WithTarget attaches a device at the given 7-bit address.
func WithTarget(addr uint8, t Target) Option {
	return func(s *Sim) { s.targets[addr&0x7F] = t }
}

// WithBusyPolls makes each transaction report busy for n Status reads
// before completing.
func WithBusyPolls(n int) Option {
	return func(s *Sim) { s.busyPolls = n }
}

// WithBusyForever makes transactions never leave the busy state, to
// exercise the host's poll ceiling.
func WithBusyForever() Option {
	return func(s *Sim) { s.busyForever = true }
}

// WithCollision latches the collision bit on every transaction.
func WithCollision() Option {
	return func(s *Sim) { s.forceCollision = true }
}

// WithBusError latches the bus-error bit on every transaction.
func WithBusError() Option {
	return func(s *Sim) { s.forceBusError = true }
}

// WithStuckStatus pre-loads status bits that ignore the write-to-clear
// idiom, to exercise the host's pre-flight reset path.
func WithStuckStatus(bits byte) Option {
	return func(s *Sim) {
		s.stuck = bits
		s.status |= bits
	}
}

// New builds a simulated controller.
func New(opts ...Option) *Sim {
	s := &Sim{targets: make(map[uint8]Target)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadReg implements portio.Region.
func (s *Sim) ReadReg(off uint8) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("osb4sim: region closed")
	}
	switch off {
	case osb4.RegStatus:
		if s.busyLeft > 0 {
			s.busyLeft--
			return s.status | osb4.StatusBusy, nil
		}
		return s.status, nil
	case osb4.RegControl:
		// A Control read re-synchronizes the block byte pointer.
		s.blockIdx = 0
		return s.regs[osb4.RegControl], nil
	case osb4.RegBlockData:
		if s.blockIdx >= len(s.block) {
			return 0, nil
		}
		v := s.block[s.blockIdx]
		s.blockIdx++
		return v, nil
	default:
		if int(off) >= len(s.regs) {
			return 0, fmt.Errorf("osb4sim: read offset 0x%02x out of range", off)
		}
		return s.regs[off], nil
	}
}

// WriteReg implements portio.Region.
func (s *Sim) WriteReg(off uint8, v byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("osb4sim: region closed")
	}
	switch off {
	case osb4.RegStatus:
		// Writing a status bit clears it; stuck bits stay latched.
		s.status &^= v
		s.status |= s.stuck
	case osb4.RegControl:
		s.regs[osb4.RegControl] = v &^ osb4.CtlStart
		if v&osb4.CtlStart != 0 {
			s.execute(v)
		}
	case osb4.RegBlockData:
		if s.blockIdx < len(s.block) {
			s.block[s.blockIdx] = v
			s.blockIdx++
		}
	default:
		if int(off) >= len(s.regs) {
			return fmt.Errorf("osb4sim: write offset 0x%02x out of range", off)
		}
		s.regs[off] = v
	}
	return nil
}

// Close implements portio.Region.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// execute runs the bus transaction latched in the registers. Called with
// the lock held when the start bit is written.
func (s *Sim) execute(ctl byte) {
	snap := Snapshot{
		Control: ctl,
		Address: s.regs[osb4.RegAddress],
		Command: s.regs[osb4.RegCommand],
		Data0:   s.regs[osb4.RegData0],
		Data1:   s.regs[osb4.RegData1],
	}
	n := int(s.regs[osb4.RegData0])
	if n > len(s.block) {
		n = len(s.block)
	}
	snap.Block = append([]byte(nil), s.block[:n]...)
	s.last = snap

	s.status = s.runTransfer(ctl)
	s.status |= s.stuck
	s.busyLeft = s.busyPolls
	if s.busyForever {
		s.busyLeft = int(^uint(0) >> 1)
	}
}

func (s *Sim) runTransfer(ctl byte) byte {
	var fault byte
	if s.forceCollision {
		fault |= osb4.StatusCollision
	}
	if s.forceBusError {
		fault |= osb4.StatusBusError
	}
	if fault != 0 {
		return fault
	}

	kind, ok := kindFromControl(ctl)
	if !ok {
		return osb4.StatusBusError
	}

	addr := s.regs[osb4.RegAddress] >> 1
	rw := smbus.RW(s.regs[osb4.RegAddress] & 1)
	cmd := s.regs[osb4.RegCommand]

	target, ok := s.targets[addr]
	if !ok {
		return osb4.StatusNoResponse
	}

	var data []byte
	if rw == smbus.Write {
		switch kind {
		case smbus.ByteData:
			data = []byte{s.regs[osb4.RegData0]}
		case smbus.WordData:
			data = []byte{s.regs[osb4.RegData0], s.regs[osb4.RegData1]}
		case smbus.BlockData:
			n := int(s.regs[osb4.RegData0])
			if n > len(s.block) {
				n = len(s.block)
			}
			data = append([]byte(nil), s.block[:n]...)
		}
	}

	res, err := target.Transfer(kind, rw, cmd, data)
	if err != nil {
		return osb4.StatusNoResponse
	}

	if rw == smbus.Read {
		switch kind {
		case smbus.Byte, smbus.ByteData:
			if len(res) >= 1 {
				s.regs[osb4.RegData0] = res[0]
			}
		case smbus.WordData:
			if len(res) >= 2 {
				s.regs[osb4.RegData0] = res[0]
				s.regs[osb4.RegData1] = res[1]
			}
		case smbus.BlockData:
			if len(res) > len(s.block) {
				res = res[:len(s.block)]
			}
			s.regs[osb4.RegData0] = byte(len(res))
			copy(s.block[:], res)
			s.blockIdx = 0
		}
	}
	return 0
}

func kindFromControl(ctl byte) (smbus.Kind, bool) {
	switch ctl & osb4.CtlSizeMask {
	case osb4.SizeQuick:
		return smbus.Quick, true
	case osb4.SizeByte:
		return smbus.Byte, true
	case osb4.SizeByteData:
		return smbus.ByteData, true
	case osb4.SizeWordData:
		return smbus.WordData, true
	case osb4.SizeBlockData:
		return smbus.BlockData, true
	default:
		return 0, false
	}
}

// LastTransaction reports the register state captured when the most recent
// transaction started.
func (s *Sim) LastTransaction() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Status reports the latched status bits without the side effects of a
// host Status read.
func (s *Sim) Status() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
