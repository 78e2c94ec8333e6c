package osb4

import "fmt"

// clearStatus tries to return the controller to idle. Writing a latched
// status bit back to the Status register clears it; one write-back is
// attempted before re-reading.
func (c *Controller) clearStatus() (byte, error) {
	st, err := c.win.ReadReg(RegStatus)
	if err != nil || st == 0 {
		return st, err
	}
	if err := c.win.WriteReg(RegStatus, st); err != nil {
		return st, err
	}
	return c.win.ReadReg(RegStatus)
}

// transaction runs one armed transaction to completion: it clears stale
// status, sets the start bit, polls until the controller leaves busy and
// classifies the final status byte. The caller must already have written
// the Control size field via encode.
func (c *Controller) transaction() (Outcome, error) {
	var out Outcome

	// A controller that will not go idle must not be armed.
	st, err := c.clearStatus()
	if err != nil {
		return out, err
	}
	if st != 0 {
		return out, fmt.Errorf("osb4: status 0x%02x will not clear: %w", st, ErrStuckStatus)
	}

	// Start the transaction by setting bit 6, keeping the encoder-set
	// bits intact.
	ctl, err := c.win.ReadReg(RegControl)
	if err != nil {
		return out, err
	}
	if err := c.win.WriteReg(RegControl, ctl|CtlStart); err != nil {
		return out, err
	}

	// SMBus transactions are millisecond scale, so each poll sleeps a
	// scheduler-granularity quantum instead of spinning.
	for polls := 0; ; polls++ {
		c.sleep(c.pollInterval)
		st, err = c.win.ReadReg(RegStatus)
		if err != nil {
			return out, err
		}
		if st&StatusBusy == 0 {
			break
		}
		if polls+1 >= c.maxPolls {
			// Timed out, but still classify whatever status bits
			// made it; timeouts and bit errors can co-occur.
			out.TimedOut = true
			break
		}
	}

	if st&StatusBusError != 0 {
		out.BusError = true
	}
	if st&StatusCollision != 0 {
		out.Collision = true
	}
	if st&StatusNoResponse != 0 {
		out.NoResponse = true
	}
	out.Success = !out.TimedOut && !out.BusError && !out.Collision && !out.NoResponse

	// Leave the controller idle for the next caller whatever the
	// outcome was. A residual nonzero status is not worth failing an
	// otherwise classified transaction over.
	if _, err := c.clearStatus(); err != nil {
		return out, err
	}
	return out, nil
}
