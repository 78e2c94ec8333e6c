package osb4_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/tinyrange/smbhost/internal/osb4"
	"github.com/tinyrange/smbhost/internal/osb4/osb4sim"
	"github.com/tinyrange/smbhost/internal/smbus"
)

func noSleep(time.Duration) {}

func TestPerformByteDataWriteEndToEnd(t *testing.T) {
	target := &osb4sim.RegTarget{}
	sim := osb4sim.New(osb4sim.WithTarget(0x2D, target))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	if err := ctrl.WriteByteData(0x2D, 0x00, 0x55); err != nil {
		t.Fatalf("write byte data: %v", err)
	}

	snap := sim.LastTransaction()
	if got, want := snap.Address, byte(0x2D<<1|1); got != want {
		t.Fatalf("address register: got 0x%02x want 0x%02x", got, want)
	}
	if snap.Command != 0x00 {
		t.Fatalf("command register: got 0x%02x want 0x00", snap.Command)
	}
	if snap.Data0 != 0x55 {
		t.Fatalf("data0 register: got 0x%02x want 0x55", snap.Data0)
	}
	if got, want := snap.Control, byte(osb4.SizeByteData|osb4.CtlStart); got != want {
		t.Fatalf("control register: got 0x%02x want 0x%02x", got, want)
	}
	if target.Regs[0x00] != 0x55 {
		t.Fatalf("target register 0: got 0x%02x want 0x55", target.Regs[0x00])
	}
	if st := sim.Status(); st != 0 {
		t.Fatalf("status not cleared after transaction: 0x%02x", st)
	}
}

func TestPerformCollisionReportedAndCleared(t *testing.T) {
	sim := osb4sim.New(
		osb4sim.WithTarget(0x2D, &osb4sim.RegTarget{}),
		osb4sim.WithCollision(),
	)
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	err := ctrl.WriteByteData(0x2D, 0x00, 0x55)
	var terr *osb4.TransactionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransactionError, got %v", err)
	}
	if !terr.Outcome.Collision {
		t.Fatalf("expected collision flag, got %s", terr.Outcome)
	}

	// The engine must have issued the final clear-status write even on
	// failure.
	if st := sim.Status(); st != 0 {
		t.Fatalf("status not cleared after collision: 0x%02x", st)
	}
}

func TestPerformNoResponseForAbsentTarget(t *testing.T) {
	sim := osb4sim.New()
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	_, err := ctrl.ReadByteData(0x31, 0x00)
	var terr *osb4.TransactionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransactionError, got %v", err)
	}
	if !terr.Outcome.NoResponse {
		t.Fatalf("expected no-response flag, got %s", terr.Outcome)
	}
}

func TestPerformQuickProducesNoResult(t *testing.T) {
	sim := osb4sim.New(osb4sim.WithTarget(0x44, &osb4sim.RegTarget{}))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	for _, rw := range []smbus.RW{smbus.Read, smbus.Write} {
		out, err := ctrl.Perform(smbus.Request{Addr: 0x44, RW: rw, Kind: smbus.Quick})
		if err != nil {
			t.Fatalf("quick %s: %v", rw, err)
		}
		if out != nil {
			t.Fatalf("quick %s returned data: %v", rw, out)
		}
	}
}

func TestPerformWordDecodeLittleEndian(t *testing.T) {
	target := &osb4sim.RegTarget{}
	target.Regs[0x06] = 0x34
	target.Regs[0x07] = 0x12
	sim := osb4sim.New(osb4sim.WithTarget(0x48, target))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	word, err := ctrl.ReadWordData(0x48, 0x06)
	if err != nil {
		t.Fatalf("read word data: %v", err)
	}
	if word != 0x1234 {
		t.Fatalf("decoded word: got 0x%04x want 0x1234", word)
	}
}

func TestPerformWordRoundTrip(t *testing.T) {
	sim := osb4sim.New(osb4sim.WithTarget(0x48, &osb4sim.RegTarget{}))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	if err := ctrl.WriteWordData(0x48, 0x10, 0xBEEF); err != nil {
		t.Fatalf("write word data: %v", err)
	}
	word, err := ctrl.ReadWordData(0x48, 0x10)
	if err != nil {
		t.Fatalf("read word data: %v", err)
	}
	if word != 0xBEEF {
		t.Fatalf("round trip word: got 0x%04x want 0xbeef", word)
	}
}

func TestPerformBlockRoundTrip(t *testing.T) {
	sim := osb4sim.New(osb4sim.WithTarget(0x50, &osb4sim.RegTarget{}))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}
	if err := ctrl.WriteBlockData(0x50, 0x20, payload); err != nil {
		t.Fatalf("write block data: %v", err)
	}
	got, err := ctrl.ReadBlockData(0x50, 0x20)
	if err != nil {
		t.Fatalf("read block data: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("block round trip: got %x want %x", got, payload)
	}
}

func TestPerformBlockWriteClampEndToEnd(t *testing.T) {
	target := &osb4sim.RegTarget{}
	sim := osb4sim.New(osb4sim.WithTarget(0x50, target))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	payload := make([]byte, 40)
	for i := range payload {
		payload[i] = byte(0x80 + i)
	}
	if err := ctrl.WriteBlockData(0x50, 0x00, payload); err != nil {
		t.Fatalf("write block data: %v", err)
	}

	snap := sim.LastTransaction()
	if snap.Data0 != smbus.BlockMax {
		t.Fatalf("wire length: got %d want %d", snap.Data0, smbus.BlockMax)
	}
	got, err := ctrl.ReadBlockData(0x50, 0x00)
	if err != nil {
		t.Fatalf("read block data: %v", err)
	}
	if len(got) != smbus.BlockMax {
		t.Fatalf("read length: got %d want %d", len(got), smbus.BlockMax)
	}
	if !bytes.Equal(got, payload[:smbus.BlockMax]) {
		t.Fatalf("clamped block: got %x want %x", got, payload[:smbus.BlockMax])
	}
}

func TestPerformReceiveByteThroughPointer(t *testing.T) {
	eeprom := osb4sim.NewEEPROM([]byte{'a', 'b', 'c'})
	sim := osb4sim.New(osb4sim.WithTarget(0x50, eeprom))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	// Send-byte sets the device's address pointer, receive-byte reads
	// through it.
	if err := ctrl.SendByte(0x50, 1); err != nil {
		t.Fatalf("send byte: %v", err)
	}
	v, err := ctrl.ReceiveByte(0x50)
	if err != nil {
		t.Fatalf("receive byte: %v", err)
	}
	if v != 'b' {
		t.Fatalf("received byte: got %q want %q", v, byte('b'))
	}
}

func TestPerformTimeoutAgainstWedgedController(t *testing.T) {
	sim := osb4sim.New(
		osb4sim.WithTarget(0x2D, &osb4sim.RegTarget{}),
		osb4sim.WithBusyForever(),
	)
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep), osb4.WithMaxPolls(10))

	err := ctrl.WriteByteData(0x2D, 0x00, 0x55)
	var terr *osb4.TransactionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransactionError, got %v", err)
	}
	if !terr.Outcome.TimedOut {
		t.Fatalf("expected timeout, got %s", terr.Outcome)
	}
}

func TestPerformStuckStatusAbortsButControllerStaysUsable(t *testing.T) {
	sim := osb4sim.New(osb4sim.WithTarget(0x2D, &osb4sim.RegTarget{}))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	stuck := osb4sim.New(
		osb4sim.WithTarget(0x2D, &osb4sim.RegTarget{}),
		osb4sim.WithStuckStatus(0x10),
	)
	stuckCtrl := osb4.New(stuck, osb4.WithSleep(noSleep))
	err := stuckCtrl.WriteByteData(0x2D, 0x00, 0x01)
	if !errors.Is(err, osb4.ErrStuckStatus) {
		t.Fatalf("expected ErrStuckStatus, got %v", err)
	}

	// The healthy controller keeps working.
	if err := ctrl.WriteByteData(0x2D, 0x00, 0x02); err != nil {
		t.Fatalf("healthy controller failed: %v", err)
	}
}

func TestPerformBusyWindowIsPolledThrough(t *testing.T) {
	target := &osb4sim.RegTarget{}
	sim := osb4sim.New(
		osb4sim.WithTarget(0x2D, target),
		osb4sim.WithBusyPolls(3),
	)
	sleeps := 0
	ctrl := osb4.New(sim, osb4.WithSleep(func(time.Duration) { sleeps++ }))

	if err := ctrl.WriteByteData(0x2D, 0x00, 0x77); err != nil {
		t.Fatalf("write byte data: %v", err)
	}
	if sleeps != 4 {
		t.Fatalf("poll sleeps: got %d want 4", sleeps)
	}
	if target.Regs[0x00] != 0x77 {
		t.Fatalf("target register: got 0x%02x want 0x77", target.Regs[0x00])
	}
}

func TestCapabilities(t *testing.T) {
	ctrl := osb4.New(osb4sim.New())
	caps := ctrl.Capabilities()

	want := smbus.CapQuick | smbus.CapByte | smbus.CapByteData |
		smbus.CapWordData | smbus.CapBlockData
	if caps != want {
		t.Fatalf("capabilities: got %s want %s", caps, want)
	}
}

func TestPerformRejectsInvalidRequests(t *testing.T) {
	sim := osb4sim.New(osb4sim.WithTarget(0x2D, &osb4sim.RegTarget{}))
	ctrl := osb4.New(sim, osb4.WithSleep(noSleep))

	// Unknown kind must be rejected before any register is written.
	_, err := ctrl.Perform(smbus.Request{Addr: 0x2D, RW: smbus.Write, Kind: smbus.Kind(9)})
	if err == nil {
		t.Fatalf("expected rejection of unknown kind")
	}
	if snap := sim.LastTransaction(); snap.Control != 0 {
		t.Fatalf("rejected request reached the controller: %+v", snap)
	}
}
