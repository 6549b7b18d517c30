package periodsync

import "fmt"

// Outcome tags the result of one advance request
type Outcome int

const (
	// Advanced means the backend moved to a new period
	Advanced Outcome = iota
	// Exhausted means the backend reported the period already observed
	Exhausted
	// TransientError means the request failed in a way a retry could fix and retries ran out
	TransientError
	// Failed means the backend rejected the request outright
	Failed
	// Cancelled means the loop context ended during the request
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Exhausted:
		return "exhausted"
	case TransientError:
		return "transient_error"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// AdvanceResult is the classified result of Advance
type AdvanceResult struct {
	Outcome  Outcome
	Period   int // backend's current period for Advanced and Exhausted
	Attempts int
	Err      error
}
