package types

import "fmt"

// Stage is one step of the enrichment pipeline
type Stage string

const (
	StageMetadata   Stage = "metadata"
	StageTags       Stage = "tags"
	StageEmbedding  Stage = "embedding"
	StageScreenshot Stage = "screenshot"
)

// IsValid checks if the stage is valid
func (s Stage) IsValid() bool {
	switch s {
	case StageMetadata, StageTags, StageEmbedding, StageScreenshot:
		return true
	default:
		return false
	}
}

func (s Stage) String() string {
	return string(s)
}

// ParseStage parses a string into a Stage
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return stage, nil
}
