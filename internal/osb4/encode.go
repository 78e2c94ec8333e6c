package osb4

import (
	"fmt"

	"github.com/tinyrange/smbhost/internal/smbus"
)

// controlCode maps a transaction kind to the size field of the Control
// register.
func controlCode(kind smbus.Kind) (byte, error) {
	switch kind {
	case smbus.Quick:
		return SizeQuick, nil
	case smbus.Byte:
		return SizeByte, nil
	case smbus.ByteData:
		return SizeByteData, nil
	case smbus.WordData:
		return SizeWordData, nil
	case smbus.BlockData:
		return SizeBlockData, nil
	default:
		return 0, fmt.Errorf("osb4: %w: %s", ErrUnsupported, kind)
	}
}

// encode programs the address, command and data registers for req and
// finishes with the single Control write that arms the controller for the
// transaction engine. An unsupported kind is rejected before any register
// is touched.
func (c *Controller) encode(req smbus.Request) error {
	code, err := controlCode(req.Kind)
	if err != nil {
		return err
	}

	addr := (req.Addr&0x7F)<<1 | byte(req.RW)&1
	if err := c.win.WriteReg(RegAddress, addr); err != nil {
		return err
	}

	switch req.Kind {
	case smbus.Quick:
		// Address and direction bit are the whole transaction.
	case smbus.Byte:
		if req.RW == smbus.Write {
			if err := c.win.WriteReg(RegCommand, req.Command); err != nil {
				return err
			}
		}
	case smbus.ByteData:
		if err := c.win.WriteReg(RegCommand, req.Command); err != nil {
			return err
		}
		if req.RW == smbus.Write {
			if err := c.win.WriteReg(RegData0, req.Data[0]); err != nil {
				return err
			}
		}
	case smbus.WordData:
		if err := c.win.WriteReg(RegCommand, req.Command); err != nil {
			return err
		}
		if req.RW == smbus.Write {
			if err := c.win.WriteReg(RegData0, req.Data[0]); err != nil {
				return err
			}
			if err := c.win.WriteReg(RegData1, req.Data[1]); err != nil {
				return err
			}
		}
	case smbus.BlockData:
		if err := c.win.WriteReg(RegCommand, req.Command); err != nil {
			return err
		}
		if req.RW == smbus.Write {
			n := len(req.Data)
			if n > smbus.BlockMax {
				n = smbus.BlockMax
			}
			if err := c.win.WriteReg(RegData0, byte(n)); err != nil {
				return err
			}
			// Reading Control resets the controller's internal
			// block byte pointer; required before the loop.
			if _, err := c.win.ReadReg(RegControl); err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				if err := c.win.WriteReg(RegBlockData, req.Data[i]); err != nil {
					return err
				}
			}
		}
	}

	ctl := code & CtlSizeMask
	if c.enableInt {
		ctl |= CtlInterrupt
	}
	return c.win.WriteReg(RegControl, ctl)
}

// decode reads the result registers after a successful transaction. Write
// transactions and Quick produce no result.
func (c *Controller) decode(kind smbus.Kind, rw smbus.RW) ([]byte, error) {
	if rw != smbus.Read || kind == smbus.Quick {
		return nil, nil
	}

	switch kind {
	case smbus.Byte, smbus.ByteData:
		// For Byte reads the documentation does not pin down whether
		// the received byte lands in Data0 or the shadow command
		// register; Data0 is what the parts appear to use.
		v, err := c.win.ReadReg(RegData0)
		if err != nil {
			return nil, err
		}
		return []byte{v}, nil
	case smbus.WordData:
		lo, err := c.win.ReadReg(RegData0)
		if err != nil {
			return nil, err
		}
		hi, err := c.win.ReadReg(RegData1)
		if err != nil {
			return nil, err
		}
		return []byte{lo, hi}, nil
	case smbus.BlockData:
		n, err := c.win.ReadReg(RegData0)
		if err != nil {
			return nil, err
		}
		// The hardware cannot report more than 32, but a confused
		// controller must not make us read past the block.
		if n > smbus.BlockMax {
			n = smbus.BlockMax
		}
		// Same block pointer reset as on the write path.
		if _, err := c.win.ReadReg(RegControl); err != nil {
			return nil, err
		}
		out := make([]byte, n)
		for i := range out {
			out[i], err = c.win.ReadReg(RegBlockData)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("osb4: %w: %s", ErrUnsupported, kind)
	}
}
