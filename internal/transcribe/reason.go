// Package transcribe defines the transcription strategy contract, its
// outcome value, and the failure taxonomy reported to users.
package transcribe

import (
	"context"
	"errors"
	"net"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rbright/voxsearch/internal/audio"
)

// Reason is the user-facing failure class of a transcription attempt.
type Reason string

const (
	ReasonPermissionDenied   Reason = "permission-denied"
	ReasonNoDeviceSupport    Reason = "no-device-support"
	ReasonNoSpeech           Reason = "no-speech-detected"
	ReasonAudioTooShort      Reason = "audio-too-short"
	ReasonNetwork            Reason = "network-error"
	ReasonAborted            Reason = "aborted"
	ReasonServiceUnavailable Reason = "service-unavailable"
	ReasonUnknown            Reason = "unknown"
)

var (
	ErrMissingCredential  = errors.New("transcription credential missing")
	ErrCredentialRejected = errors.New("transcription credential rejected")
	ErrAudioTooShort      = errors.New("audio too short")
	ErrNoSpeech           = errors.New("no speech detected")
	ErrRecognizerBusy     = errors.New("recognizer already started")
	ErrUnsupportedAudio   = errors.New("unsupported audio container")
	ErrTimeout            = errors.New("transcription timed out")
)

// SetupError names the setting a strategy needs before it can run.
type SetupError struct {
	Setting string
}

func (e *SetupError) Error() string {
	return "transcription not configured: " + e.Setting + " is empty"
}

func (e *SetupError) Unwrap() error { return ErrMissingCredential }

// RecognitionError carries a raw error code reported by a speech engine.
type RecognitionError struct {
	Code   string
	Detail string
}

func (e *RecognitionError) Error() string {
	if e.Detail == "" {
		return "recognition error: " + e.Code
	}
	return "recognition error: " + e.Code + ": " + e.Detail
}

// Classify maps any error signal onto a Reason. Unrecognised signals, and a
// nil error, classify as ReasonUnknown.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}

	switch {
	case errors.Is(err, ErrMissingCredential), errors.Is(err, ErrCredentialRejected):
		return ReasonServiceUnavailable
	case errors.Is(err, ErrAudioTooShort):
		return ReasonAudioTooShort
	case errors.Is(err, ErrNoSpeech):
		return ReasonNoSpeech
	case errors.Is(err, ErrRecognizerBusy), errors.Is(err, context.Canceled):
		return ReasonAborted
	case errors.Is(err, ErrUnsupportedAudio), errors.Is(err, audio.ErrNoDevice):
		return ReasonNoDeviceSupport
	case errors.Is(err, audio.ErrDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonUnknown
	}

	var recognition *RecognitionError
	if errors.As(err, &recognition) {
		return classifyCode(recognition.Code)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		return classifyStatus(st)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ReasonNetwork
	}

	return classifyCode(err.Error())
}

// classifyCode handles engine error codes and free-form error text.
func classifyCode(code string) Reason {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "not-allowed", "service-not-allowed", "permission-denied":
		return ReasonPermissionDenied
	case "audio-capture", "language-not-supported", "not-supported":
		return ReasonNoDeviceSupport
	case "no-speech":
		return ReasonNoSpeech
	case "network":
		return ReasonNetwork
	case "aborted":
		return ReasonAborted
	}

	switch {
	case strings.Contains(code, "connection refused"),
		strings.Contains(code, "no such host"),
		strings.Contains(code, "network"):
		return ReasonNetwork
	case strings.Contains(code, "unauthorized"),
		strings.Contains(code, "invalid api key"),
		strings.Contains(code, "authentication"):
		return ReasonServiceUnavailable
	}
	return ReasonUnknown
}

func classifyStatus(st *status.Status) Reason {
	switch st.Code() {
	case codes.PermissionDenied:
		return ReasonPermissionDenied
	case codes.Unauthenticated:
		return ReasonServiceUnavailable
	case codes.Unavailable:
		return ReasonNetwork
	case codes.Canceled, codes.Aborted:
		return ReasonAborted
	case codes.Unimplemented:
		return ReasonNoDeviceSupport
	case codes.NotFound, codes.FailedPrecondition, codes.InvalidArgument:
		if r := classifyCode(st.Message()); r != ReasonUnknown {
			return r
		}
		return ReasonUnknown
	default:
		return ReasonUnknown
	}
}

// Message returns the user-facing notification text for reason.
func Message(reason Reason) string {
	switch reason {
	case ReasonPermissionDenied:
		return "Microphone permission was denied. Allow access to the input device and try again."
	case ReasonNoDeviceSupport:
		return "No usable audio input or speech engine was found on this system."
	case ReasonNoSpeech:
		return "No speech was detected. Check that the microphone works and speak close to it."
	case ReasonAudioTooShort:
		return "The recording was too short to transcribe. Speak for a little longer."
	case ReasonNetwork:
		return "Network error while transcribing. Check your connection."
	case ReasonAborted:
		return "Speech recognition was interrupted."
	case ReasonServiceUnavailable:
		return "The transcription service is unavailable. Check the transcription settings and try again."
	default:
		return "Speech recognition failed. Try again or type your search."
	}
}

// TimeoutMessage is the notification used when the safety timeout fires.
const TimeoutMessage = "Transcription took too long and was cancelled. Try again."
