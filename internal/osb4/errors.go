package osb4

import (
	"errors"
	"strings"
)

var (
	// ErrUnsupported reports a transaction kind the controller cannot
	// run (proc call, or anything outside the known set).
	ErrUnsupported = errors.New("unsupported transaction kind")

	// ErrStuckStatus reports a controller whose status bits would not
	// clear before a new transaction. The transaction is aborted; the
	// controller stays usable for the next attempt.
	ErrStuckStatus = errors.New("controller status stuck")
)

// Outcome is the classified result of one host transaction. Either the
// transaction fully completed or one or more failure flags are set; the
// flags are not mutually exclusive.
type Outcome struct {
	Success    bool
	TimedOut   bool
	Collision  bool
	NoResponse bool
	BusError   bool
}

func (o Outcome) flags() []string {
	var f []string
	if o.BusError {
		f = append(f, "bus error")
	}
	if o.Collision {
		f = append(f, "collision")
	}
	if o.NoResponse {
		f = append(f, "no response")
	}
	if o.TimedOut {
		f = append(f, "timed out")
	}
	return f
}

func (o Outcome) String() string {
	if o.Success {
		return "success"
	}
	f := o.flags()
	if len(f) == 0 {
		return "failed"
	}
	return strings.Join(f, ", ")
}

// TransactionError wraps a failed Outcome.
type TransactionError struct {
	Outcome Outcome
}

func (e *TransactionError) Error() string {
	return "osb4: transaction failed: " + e.Outcome.String()
}
