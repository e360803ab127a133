package reconcile

type State int

const (
	StateIdle State = iota
	StateEditing
	StateSubmitting
	StateReconciling
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateReconciling:
		return "reconciling"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Busy reports whether a mutation is in flight. Save and the bulk controls
// are disabled while busy.
func (s State) Busy() bool { return s == StateSubmitting || s == StateReconciling }

type event int

const (
	evEdit       event = iota // delta store changed
	evSubmit                  // save, bulk or reset confirmed
	evSettled                 // every call of the submission returned
	evAborted                 // rejected before any write: validation or authorization
	evFailed                  // submission or reconciling fetch failed without a result
	evReconciled              // re-fetch after a submission finished
	evRetry                   // user retries from Error
	evReset                   // session opened or closed
)

// next is the driver's transition table. pending is the number of staked
// deltas after the event; it decides between Idle and Editing. ok is false
// when the event is not allowed in s.
func next(s State, e event, pending int) (State, bool) {
	rest := StateIdle
	if pending > 0 {
		rest = StateEditing
	}
	switch e {
	case evEdit:
		if s == StateIdle || s == StateEditing {
			return rest, true
		}
	case evSubmit:
		if s == StateIdle || s == StateEditing {
			return StateSubmitting, true
		}
	case evSettled:
		if s == StateSubmitting {
			return StateReconciling, true
		}
	case evAborted:
		if s == StateSubmitting {
			return rest, true
		}
	case evFailed:
		if s == StateSubmitting || s == StateReconciling {
			return StateError, true
		}
	case evReconciled:
		if s == StateReconciling {
			return rest, true
		}
	case evRetry:
		if s == StateError {
			return rest, true
		}
	case evReset:
		return StateIdle, true
	}
	return s, false
}

// guard maps a disallowed transition to the error reported to the caller.
func guard(s State) error {
	switch {
	case s.Busy():
		return ErrBusy
	case s == StateError:
		return ErrNeedsRetry
	}
	return nil
}
