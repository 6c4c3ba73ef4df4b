package ingestion

import "fmt"

// Stage is a step of a full ingestion run. Runs move through the stages in
// declaration order and end in StageCommitted or StageFailed.
type Stage int

const (
	StageIdle Stage = iota
	StageSchemaEnsured
	StageStructuredCleared
	StageStructuredLoaded
	StageOpenAPILoaded
	StageStructuredCommitted
	StageUnstructuredEmbedded
	StageCommitted
	StageFailed
)

var stageNames = [...]string{
	StageIdle:                 "idle",
	StageSchemaEnsured:        "schema_ensured",
	StageStructuredCleared:    "structured_cleared",
	StageStructuredLoaded:     "structured_loaded",
	StageOpenAPILoaded:        "openapi_loaded",
	StageStructuredCommitted:  "structured_committed",
	StageUnstructuredEmbedded: "unstructured_embedded",
	StageCommitted:            "committed",
	StageFailed:               "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageCommitted || s == StageFailed
}
