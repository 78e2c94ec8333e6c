// Package osb4 drives the SMBus host controller block in the ServerWorks
// OSB4 southbridge: it encodes SMBus requests onto the controller's
// register window, runs the host transaction state machine and decodes
// results. Register access goes through portio.Region, so the same code
// runs against real ports or the simulator in osb4sim.
package osb4

// Register offsets from the SMBus base address. The layout must match the
// hardware exactly.
const (
	RegStatus        = 0x0
	RegSlaveStatus   = 0x1
	RegControl       = 0x2
	RegCommand       = 0x3
	RegAddress       = 0x4
	RegData0         = 0x5
	RegData1         = 0x6
	RegBlockData     = 0x7
	RegSlaveControl  = 0x8
	RegShadowCommand = 0x9
	RegSlaveEvent    = 0xA
	RegSlaveData     = 0xC
)

// WindowSize is the number of I/O ports the host block decodes; the slave
// registers above it are not part of the reserved window.
const WindowSize = 8

// Control register encoding: a 3-bit transaction size field, the start bit
// and the interrupt-select bit.
const (
	SizeQuick     = 0x00
	SizeByte      = 0x04
	SizeByteData  = 0x08
	SizeWordData  = 0x0C
	SizeBlockData = 0x14

	CtlSizeMask  = 0x1C
	CtlStart     = 0x40
	CtlInterrupt = 0x01
)

// Status register bits. Any nonzero status means the controller is not
// idle.
const (
	StatusBusy       = 1 << 0
	StatusNoResponse = 1 << 2
	StatusCollision  = 1 << 3
	StatusBusError   = 1 << 4
)
