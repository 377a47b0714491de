package export

import (
	"errors"
	"fmt"
)

// ErrExportInProgress is returned when a trigger arrives while the pipeline is
// already exporting. Triggers are rejected, not queued.
var ErrExportInProgress = errors.New("export: already in progress")

// Stage names the pipeline step that failed.
type Stage string

// Pipeline stages.
const (
	StageCapture Stage = "capture"
	StageEmbed   Stage = "embed"
	StageSave    Stage = "save"
)

// Error is a recoverable failure of one pipeline stage. The document is left
// untouched and the pipeline is back to Idle when it is returned.
type Error struct {
	Stage Stage // failing step
	Err   error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("export %s: unknown error", e.Stage)
}

func (e *Error) Unwrap() error {
	return e.Err
}
