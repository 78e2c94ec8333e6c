package osb4sim

import (
	"fmt"

	"github.com/tinyrange/smbhost/internal/smbus"
)

// RegTarget is a 256-register target device, enough to stand in for
// EEPROMs and management sensors. Byte transfers treat the command byte as
// an address pointer the way serial EEPROMs do: send-byte sets the
// pointer, receive-byte reads through it and advances it.
type RegTarget struct {
	Regs [256]byte

	ptr      uint8
	blockLen map[uint8]uint8
}

// NewEEPROM builds a RegTarget pre-loaded with data starting at register 0.
func NewEEPROM(data []byte) *RegTarget {
	t := &RegTarget{}
	copy(t.Regs[:], data)
	return t
}

// Transfer implements Target.
func (t *RegTarget) Transfer(kind smbus.Kind, rw smbus.RW, cmd byte, data []byte) ([]byte, error) {
	switch kind {
	case smbus.Quick:
		return nil, nil
	case smbus.Byte:
		if rw == smbus.Write {
			t.ptr = cmd
			return nil, nil
		}
		v := t.Regs[t.ptr]
		t.ptr++
		return []byte{v}, nil
	case smbus.ByteData:
		if rw == smbus.Write {
			t.Regs[cmd] = data[0]
			return nil, nil
		}
		return []byte{t.Regs[cmd]}, nil
	case smbus.WordData:
		if rw == smbus.Write {
			t.Regs[cmd] = data[0]
			t.Regs[cmd+1] = data[1]
			return nil, nil
		}
		return []byte{t.Regs[cmd], t.Regs[cmd+1]}, nil
	case smbus.BlockData:
		if rw == smbus.Write {
			if t.blockLen == nil {
				t.blockLen = make(map[uint8]uint8)
			}
			t.blockLen[cmd] = uint8(len(data))
			p := cmd
			for _, b := range data {
				t.Regs[p] = b
				p++
			}
			return nil, nil
		}
		n, ok := t.blockLen[cmd]
		if !ok {
			n = smbus.BlockMax
		}
		out := make([]byte, n)
		p := cmd
		for i := range out {
			out[i] = t.Regs[p]
			p++
		}
		return out, nil
	default:
		return nil, fmt.Errorf("osb4sim: target cannot serve %s", kind)
	}
}

var _ Target = (*RegTarget)(nil)
