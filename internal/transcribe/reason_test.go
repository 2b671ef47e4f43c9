package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rbright/voxsearch/internal/audio"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{name: "nil", err: nil, want: ReasonUnknown},
		{name: "missing credential", err: ErrMissingCredential, want: ReasonServiceUnavailable},
		{name: "rejected credential wrapped", err: fmt.Errorf("call: %w", ErrCredentialRejected), want: ReasonServiceUnavailable},
		{name: "too short", err: ErrAudioTooShort, want: ReasonAudioTooShort},
		{name: "no speech sentinel", err: ErrNoSpeech, want: ReasonNoSpeech},
		{name: "busy", err: ErrRecognizerBusy, want: ReasonAborted},
		{name: "canceled", err: context.Canceled, want: ReasonAborted},
		{name: "deadline", err: context.DeadlineExceeded, want: ReasonUnknown},
		{name: "timeout", err: ErrTimeout, want: ReasonUnknown},
		{name: "unsupported container", err: ErrUnsupportedAudio, want: ReasonNoDeviceSupport},
		{name: "audio device missing", err: fmt.Errorf("%w: no source", audio.ErrNoDevice), want: ReasonNoDeviceSupport},
		{name: "audio denied", err: fmt.Errorf("%w: denied", audio.ErrDenied), want: ReasonPermissionDenied},
		{name: "engine not-allowed", err: &RecognitionError{Code: "not-allowed"}, want: ReasonPermissionDenied},
		{name: "engine no-speech", err: &RecognitionError{Code: "no-speech"}, want: ReasonNoSpeech},
		{name: "engine network", err: &RecognitionError{Code: "network"}, want: ReasonNetwork},
		{name: "engine aborted", err: &RecognitionError{Code: "aborted"}, want: ReasonAborted},
		{name: "engine audio-capture", err: &RecognitionError{Code: "audio-capture"}, want: ReasonNoDeviceSupport},
		{name: "engine unknown code", err: &RecognitionError{Code: "bad-grammar"}, want: ReasonUnknown},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "connection refused"), want: ReasonNetwork},
		{name: "grpc unauthenticated", err: status.Error(codes.Unauthenticated, "nope"), want: ReasonServiceUnavailable},
		{name: "grpc unimplemented", err: status.Error(codes.Unimplemented, "no method"), want: ReasonNoDeviceSupport},
		{name: "grpc not found no-speech", err: status.Error(codes.NotFound, "no-speech"), want: ReasonNoSpeech},
		{name: "grpc internal", err: status.Error(codes.Internal, "boom"), want: ReasonUnknown},
		{name: "net op error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: ReasonNetwork},
		{name: "text unauthorized", err: errors.New("401 Unauthorized"), want: ReasonServiceUnavailable},
		{name: "text no such host", err: errors.New("dial tcp: lookup api: no such host"), want: ReasonNetwork},
		{name: "free text", err: errors.New("something odd"), want: ReasonUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestMessageIsDistinctPerReason(t *testing.T) {
	reasons := []Reason{
		ReasonPermissionDenied,
		ReasonNoDeviceSupport,
		ReasonNoSpeech,
		ReasonAudioTooShort,
		ReasonNetwork,
		ReasonAborted,
		ReasonServiceUnavailable,
		ReasonUnknown,
	}
	seen := make(map[string]Reason)
	for _, reason := range reasons {
		msg := Message(reason)
		require.NotEmpty(t, msg)
		prev, dup := seen[msg]
		require.False(t, dup, "%s shares a message with %s", reason, prev)
		seen[msg] = reason
	}
	require.Equal(t, Message(ReasonUnknown), Message(Reason("made-up")))
}

func TestRecognitionErrorString(t *testing.T) {
	require.Equal(t, "recognition error: no-speech", (&RecognitionError{Code: "no-speech"}).Error())
	require.Equal(t, "recognition error: network: offline", (&RecognitionError{Code: "network", Detail: "offline"}).Error())
}
