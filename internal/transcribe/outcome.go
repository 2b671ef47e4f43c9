package transcribe

import (
	"context"
	"errors"
	"time"
)

// UnknownConfidence marks an outcome whose engine reported no confidence.
const UnknownConfidence = -1.0

// Outcome is the immutable result of one transcription attempt.
type Outcome struct {
	Text       string
	Confidence float64
	Success    bool
	Reason     Reason
	// Err is the raw error detail, for logs.
	Err string
	// Message is the user-facing notification text.
	Message string
}

// Succeeded builds a successful outcome.
func Succeeded(text string, confidence float64) Outcome {
	return Outcome{Text: text, Confidence: confidence, Success: true}
}

// Failed builds a failed outcome classified from err.
func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("transcription failed")
	}
	reason := Classify(err)
	message := Message(reason)
	var setup *SetupError
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		message = TimeoutMessage
	case errors.As(err, &setup):
		message = "The transcription service is not configured. Set " + setup.Setting + " and try again."
	}
	return Outcome{
		Confidence: UnknownConfidence,
		Reason:     reason,
		Err:        err.Error(),
		Message:    message,
	}
}

// Audio is one finished capture or imported file handed to a strategy.
type Audio struct {
	Name        string
	ContentType string
	// Data is the encoded container: a WAV blob for captures, the file bytes for imports.
	Data []byte
	// PCM is mono s16le when the samples are known, else nil.
	PCM        []byte
	SampleRate int
}

// Size is the encoded byte length used by the minimum-size guard.
func (a Audio) Size() int {
	return len(a.Data)
}

// Strategy turns audio into text.
type Strategy interface {
	Name() string
	// Available reports configuration problems before any device is opened.
	Available() error
	// SafetyTimeout bounds how long a caller waits for Transcribe.
	SafetyTimeout() time.Duration
	Transcribe(ctx context.Context, audio Audio) Outcome
}

// Releaser is implemented by strategies that hold resources across attempts.
type Releaser interface {
	Release()
}

// Run applies the shared pre-checks, then delegates to strategy. Audio below
// minBytes never reaches the strategy.
func Run(ctx context.Context, strategy Strategy, audio Audio, minBytes int) Outcome {
	if err := strategy.Available(); err != nil {
		return Failed(err)
	}
	if audio.Size() < minBytes {
		return Failed(ErrAudioTooShort)
	}
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}
	return strategy.Transcribe(ctx, audio)
}
