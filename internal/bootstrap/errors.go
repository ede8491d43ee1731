// filepath: internal/bootstrap/errors.go
package bootstrap

import "fmt"

// Stage names one step of the bootstrap chain.
type Stage string

const (
	StageConnect   Stage = "connect"
	StageSchema    Stage = "schema"
	StageMigrate   Stage = "migrate"
	StageAuthorize Stage = "authorize"
	StageSeed      Stage = "seed"
)

// Stages lists the chain in execution order.
var Stages = []Stage{StageConnect, StageSchema, StageMigrate, StageAuthorize, StageSeed}

// ExitDatabase is the process exit code for a failed mandatory stage.
const ExitDatabase = 2

// StageError is returned by InitializeStorage when a mandatory stage fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("storage initialization failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fatal reports whether the failed stage must stop the process.
func (e *StageError) Fatal() bool {
	return e.Stage == StageConnect || e.Stage == StageSchema
}

func (e *StageError) ExitCode() int {
	return ExitDatabase
}
