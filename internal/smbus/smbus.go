// Package smbus defines the protocol-level model for SMBus host
// transactions: transaction kinds, transfer direction, request validation
// and the adapter interface host controller drivers implement.
package smbus

import (
	"fmt"
	"strings"
)

// Kind selects the shape of an SMBus transaction. Proc-call transactions
// are deliberately absent; the OSB4 host block does not support them.
type Kind uint8

const (
	// Quick sends only the target address and direction bit.
	Quick Kind = iota

	// Byte sends (write) or receives (read) a single byte without a
	// command byte framing it.
	Byte

	// ByteData transfers one byte at a device register selected by the
	// command byte.
	ByteData

	// WordData transfers a little-endian 16-bit word at a device
	// register selected by the command byte.
	WordData

	// BlockData transfers up to 32 bytes at a device register selected
	// by the command byte; the first wire byte carries the length.
	BlockData
)

func (k Kind) String() string {
	switch k {
	case Quick:
		return "quick"
	case Byte:
		return "byte"
	case ByteData:
		return "byte-data"
	case WordData:
		return "word-data"
	case BlockData:
		return "block-data"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind converts a textual kind name as accepted on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "quick":
		return Quick, nil
	case "byte":
		return Byte, nil
	case "byte-data", "byte_data":
		return ByteData, nil
	case "word-data", "word_data":
		return WordData, nil
	case "block-data", "block_data":
		return BlockData, nil
	default:
		return 0, fmt.Errorf("smbus: unknown transaction kind %q", s)
	}
}

// RW is the transfer direction. The numeric values are the wire encoding
// of the direction bit in the host controller's address register.
type RW uint8

const (
	Read RW = iota
	Write
)

func (rw RW) String() string {
	if rw == Read {
		return "read"
	}
	return "write"
}

// BlockMax is the largest payload a block transaction can carry.
const BlockMax = 32

// Request describes one SMBus transaction against a target device.
type Request struct {
	// Addr is the 7-bit target address.
	Addr uint8

	RW      RW
	Command uint8
	Kind    Kind

	// Data is the write payload. Its length is implied by Kind: empty
	// for Quick and Byte, one byte for ByteData, two for WordData and
	// up to BlockMax for BlockData (longer payloads are clamped by the
	// encoder). Read requests carry no payload.
	Data []byte
}

// Validate rejects requests whose payload does not match their kind, and
// unknown kinds, before any hardware state is touched.
func (r Request) Validate() error {
	if r.RW != Read && r.RW != Write {
		return fmt.Errorf("smbus: invalid direction %d", r.RW)
	}
	if r.RW == Read && len(r.Data) != 0 {
		return fmt.Errorf("smbus: read request carries a payload")
	}
	switch r.Kind {
	case Quick, Byte:
		if len(r.Data) != 0 {
			return fmt.Errorf("smbus: %s transaction carries no payload, got %d bytes", r.Kind, len(r.Data))
		}
	case ByteData:
		if r.RW == Write && len(r.Data) != 1 {
			return fmt.Errorf("smbus: %s write needs 1 payload byte, got %d", r.Kind, len(r.Data))
		}
	case WordData:
		if r.RW == Write && len(r.Data) != 2 {
			return fmt.Errorf("smbus: %s write needs 2 payload bytes, got %d", r.Kind, len(r.Data))
		}
	case BlockData:
		// Oversized payloads are clamped to BlockMax on the wire.
	default:
		return fmt.Errorf("smbus: unsupported transaction kind %d", r.Kind)
	}
	return nil
}

// Capability is the bitmask of transaction kinds an adapter supports.
type Capability uint32

const (
	CapQuick Capability = 1 << iota
	CapByte
	CapByteData
	CapWordData
	CapBlockData
)

// Has reports whether all capabilities in mask are present.
func (c Capability) Has(mask Capability) bool { return c&mask == mask }

func (c Capability) String() string {
	var names []string
	for _, e := range []struct {
		cap  Capability
		name string
	}{
		{CapQuick, "quick"},
		{CapByte, "byte"},
		{CapByteData, "byte-data"},
		{CapWordData, "word-data"},
		{CapBlockData, "block-data"},
	} {
		if c&e.cap != 0 {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Adapter is the facade a host controller driver exposes: a single entry
// point that runs one transaction to completion. Perform returns the read
// payload for read transactions and nil for writes and Quick.
type Adapter interface {
	Perform(req Request) ([]byte, error)
	Capabilities() Capability
}
