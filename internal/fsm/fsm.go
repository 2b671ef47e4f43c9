// Package fsm is the recording session lifecycle:
//
//	idle --start--> recording --stop--> stopping --stopped--> transcribing --transcribed--> idle
//	idle --import--> transcribing
//	any --fail--> error --reset--> idle
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

const (
	EventStart       Event = "start"
	EventImport      Event = "import"
	EventStop        Event = "stop"
	EventStopped     Event = "stopped"
	EventTranscribed Event = "transcribed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
)

var transitions = map[State]map[Event]State{
	StateIdle:         {EventStart: StateRecording, EventImport: StateTranscribing},
	StateRecording:    {EventStop: StateStopping},
	StateStopping:     {EventStopped: StateTranscribing},
	StateTranscribing: {EventTranscribed: StateIdle},
	StateError:        {EventReset: StateIdle},
}

// Transition returns the state reached from current on event. On error the
// current state is returned unchanged.
func Transition(current State, event Event) (State, error) {
	edges, known := transitions[current]
	if !known {
		return current, fmt.Errorf("unknown state %q", current)
	}
	if event == EventFail {
		return StateError, nil
	}
	next, ok := edges[event]
	if !ok {
		return current, fmt.Errorf("invalid transition: %s --(%s)--> ?", current, event)
	}
	return next, nil
}

// Recording reports whether the microphone is live in state s.
func (s State) Recording() bool {
	return s == StateRecording
}

// Transcribing reports whether captured audio is being processed in state s.
func (s State) Transcribing() bool {
	return s == StateStopping || s == StateTranscribing
}
