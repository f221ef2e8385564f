package types

import "fmt"

// JobOperation identifies the unit of pipeline work a job asks for
type JobOperation string

const (
	// JobOperationEnrich runs metadata, tagging and embedding in sequence
	JobOperationEnrich JobOperation = "enrich"
	// JobOperationScreenshot captures the page screenshot
	JobOperationScreenshot JobOperation = "screenshot"
)

// AllJobOperations returns all valid job operations
func AllJobOperations() []JobOperation {
	return []JobOperation{
		JobOperationEnrich,
		JobOperationScreenshot,
	}
}

// IsValid checks if the job operation is valid
func (o JobOperation) IsValid() bool {
	switch o {
	case JobOperationEnrich, JobOperationScreenshot:
		return true
	default:
		return false
	}
}

func (o JobOperation) String() string {
	return string(o)
}

// ParseJobOperation parses a string into a JobOperation
func ParseJobOperation(s string) (JobOperation, error) {
	op := JobOperation(s)
	if !op.IsValid() {
		return "", fmt.Errorf("invalid job operation: %s", s)
	}
	return op, nil
}
