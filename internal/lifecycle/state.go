package lifecycle

import (
	"fmt"

	"github.com/rs/xid"
)

// State is a pipeline instance's lifecycle state.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transition is published every time an instance changes state.
type Transition struct {
	Generation uint64
	Instance   xid.ID
	State      State
}
