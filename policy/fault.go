package policy

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names the pipeline step a fault happened in.
type Stage string

const (
	StageParse     Stage = "parse"
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StagePersist   Stage = "persist"
	StagePanic     Stage = "panic"
)

// Fault is an unexpected failure inside the pipeline. It never reaches the
// client: the original response is served instead.
type Fault struct {
	Stage Stage
	Err   error
}

func newFault(stage Stage, err error) *Fault {
	return &Fault{Stage: stage, Err: errors.WithStack(err)}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Format prints the cause's stack trace for %+v.
func (f *Fault) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "%s: %+v", f.Stage, f.Err)
		return
	}
	fmt.Fprint(s, f.Error())
}
