package osb4

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyrange/smbhost/internal/portio"
	"github.com/tinyrange/smbhost/internal/smbus"
)

// Poll loop defaults. The 500-poll ceiling is a conservative worst case
// from the hardware documentation, not a tuned value.
const (
	DefaultPollInterval = time.Millisecond
	DefaultMaxPolls     = 500
)

// Controller is the adapter facade for one OSB4 SMBus host block. All
// transactions are serialized through it; the register window is a
// singleton hardware resource with no internal queueing, so exactly one
// transaction is in flight at a time. A transaction cannot be cancelled
// once armed: it runs to completion or to the poll ceiling.
type Controller struct {
	mu  sync.Mutex
	win portio.Region
	log *slog.Logger

	sleep        func(time.Duration)
	pollInterval time.Duration
	maxPolls     int
	enableInt    bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithSleep overrides the poll-loop sleep, for deterministic tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithPollInterval overrides the per-poll sleep quantum.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxPolls overrides the poll ceiling.
func WithMaxPolls(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// WithLogger overrides the logger used for transaction warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithInterruptSelect sets the interrupt-select bit in every Control
// write. Completion is still detected by polling; the bit only routes the
// hardware's own signalling.
func WithInterruptSelect() Option {
	return func(c *Controller) { c.enableInt = true }
}

// New builds a Controller over an exclusively owned register window.
func New(win portio.Region, opts ...Option) *Controller {
	c := &Controller{
		win:          win,
		log:          slog.Default(),
		sleep:        time.Sleep,
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities implements smbus.Adapter. Proc call is excluded; the host
// block cannot run it.
func (c *Controller) Capabilities() smbus.Capability {
	return smbus.CapQuick | smbus.CapByte | smbus.CapByteData |
		smbus.CapWordData | smbus.CapBlockData
}

// Perform implements smbus.Adapter: encode the request, run the
// transaction and decode the result registers for reads.
func (c *Controller) Perform(req smbus.Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.encode(req); err != nil {
		return nil, err
	}
	out, err := c.transaction()
	if err != nil {
		return nil, err
	}
	if !out.Success {
		if out.Collision {
			// The bus may stay electrically locked until the next
			// hard reset. Never report this quietly.
			c.log.Warn("SMBus collision; bus may be locked until the next hard reset",
				"addr", fmt.Sprintf("0x%02x", req.Addr), "kind", req.Kind.String())
		}
		return nil, &TransactionError{Outcome: out}
	}
	return c.decode(req.Kind, req.RW)
}

// Quick runs a quick transaction carrying only the direction bit.
func (c *Controller) Quick(addr uint8, rw smbus.RW) error {
	_, err := c.Perform(smbus.Request{Addr: addr, RW: rw, Kind: smbus.Quick})
	return err
}

// ReceiveByte reads a byte from a target without a command byte.
func (c *Controller) ReceiveByte(addr uint8) (byte, error) {
	out, err := c.Perform(smbus.Request{Addr: addr, RW: smbus.Read, Kind: smbus.Byte})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// SendByte writes a single byte to a target without register framing.
func (c *Controller) SendByte(addr, v uint8) error {
	_, err := c.Perform(smbus.Request{Addr: addr, RW: smbus.Write, Command: v, Kind: smbus.Byte})
	return err
}

// ReadByteData reads one byte from a target register.
func (c *Controller) ReadByteData(addr, cmd uint8) (byte, error) {
	out, err := c.Perform(smbus.Request{Addr: addr, RW: smbus.Read, Command: cmd, Kind: smbus.ByteData})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// WriteByteData writes one byte to a target register.
func (c *Controller) WriteByteData(addr, cmd, v uint8) error {
	_, err := c.Perform(smbus.Request{
		Addr: addr, RW: smbus.Write, Command: cmd, Kind: smbus.ByteData,
		Data: []byte{v},
	})
	return err
}

// ReadWordData reads a little-endian word from a target register.
func (c *Controller) ReadWordData(addr, cmd uint8) (uint16, error) {
	out, err := c.Perform(smbus.Request{Addr: addr, RW: smbus.Read, Command: cmd, Kind: smbus.WordData})
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(out), nil
}

// WriteWordData writes a little-endian word to a target register.
func (c *Controller) WriteWordData(addr, cmd uint8, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := c.Perform(smbus.Request{
		Addr: addr, RW: smbus.Write, Command: cmd, Kind: smbus.WordData,
		Data: buf[:],
	})
	return err
}

// ReadBlockData reads a length-prefixed block from a target register.
func (c *Controller) ReadBlockData(addr, cmd uint8) ([]byte, error) {
	return c.Perform(smbus.Request{Addr: addr, RW: smbus.Read, Command: cmd, Kind: smbus.BlockData})
}

// WriteBlockData writes up to smbus.BlockMax bytes to a target register;
// longer payloads are clamped.
func (c *Controller) WriteBlockData(addr, cmd uint8, data []byte) error {
	_, err := c.Perform(smbus.Request{
		Addr: addr, RW: smbus.Write, Command: cmd, Kind: smbus.BlockData,
		Data: data,
	})
	return err
}

var _ smbus.Adapter = (*Controller)(nil)
