package capture

import (
	"context"
	"fmt"

	"github.com/rbright/voxsearch/internal/fsm"
	"github.com/rbright/voxsearch/internal/ipc"
)

// Handle serves IPC commands for the active session owner.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		status := c.Status()
		return ipc.Response{
			OK:        true,
			State:     string(c.State()),
			Message:   "status",
			Progress:  status.Progress,
			Remaining: c.remaining().String(),
		}
	case ipc.CommandToggle:
		return c.requestStop("toggle")
	case ipc.CommandStop:
		return c.requestStop("stop")
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop routes an external stop through StopRecording when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	switch state {
	case fsm.StateStopping, fsm.StateTranscribing:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	case fsm.StateRecording:
		c.StopRecording()
		return ipc.Response{OK: true, State: string(c.State()), Message: "stop requested"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}
}
