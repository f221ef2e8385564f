package types

// Decision is the outcome of a stage guard, evaluated before any I/O
type Decision int

const (
	// DecisionProceed means the stage should run
	DecisionProceed Decision = iota
	// DecisionSkip means the stage has nothing to do (already done or not applicable)
	DecisionSkip
	// DecisionFail means the input can never satisfy the stage
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionSkip:
		return "skip"
	case DecisionFail:
		return "fail"
	default:
		return "unknown"
	}
}
