// Package ipc is the unix-socket control channel between a running listen
// session and the stop/status/toggle commands. Each connection carries one
// newline-terminated JSON request and one JSON response.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
)

// Commands understood by a session owner.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
	CommandToggle = "toggle"
)

const maxMessageBytes = 16 << 10

// ErrMessageTooLarge reports a control message above the size limit.
var ErrMessageTooLarge = errors.New("control message too large")

// Request is one command sent to a session owner.
type Request struct {
	Command string `json:"command"`
}

// Response is the owner's reply to a Request.
type Response struct {
	OK        bool    `json:"ok"`
	State     string  `json:"state,omitempty"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
	Progress  float64 `json:"progress,omitempty"`
	Remaining string  `json:"remaining,omitempty"`
}

func writeMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// readLine returns the first newline-terminated message on r.
func readLine(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxMessageBytes)
	if scanner.Scan() {
		return scanner.Bytes(), nil
	}
	err := scanner.Err()
	switch {
	case errors.Is(err, bufio.ErrTooLong):
		return nil, ErrMessageTooLarge
	case err != nil:
		return nil, err
	default:
		return nil, io.ErrUnexpectedEOF
	}
}
