package assembly

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	assemblyai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/stretchr/testify/require"

	"github.com/rbright/voxsearch/internal/transcribe"
)

type fakeTranscriber struct {
	result   assemblyai.Transcript
	err      error
	calls    int
	body     []byte
	language assemblyai.TranscriptLanguageCode
}

func (f *fakeTranscriber) TranscribeFromReader(_ context.Context, reader io.Reader, params *assemblyai.TranscriptOptionalParams) (assemblyai.Transcript, error) {
	f.calls++
	f.body, _ = io.ReadAll(reader)
	if params != nil {
		f.language = params.LanguageCode
	}
	return f.result, f.err
}

func ptr[T any](v T) *T { return &v }

func TestAvailableRequiresAPIKey(t *testing.T) {
	s := newWithTranscriber(Config{APIKey: "  "}, &fakeTranscriber{}, nil)
	require.ErrorIs(t, s.Available(), transcribe.ErrMissingCredential)

	s = newWithTranscriber(Config{APIKey: "key"}, &fakeTranscriber{}, nil)
	require.NoError(t, s.Available())
}

func TestTranscribeMissingKeyNeverCallsService(t *testing.T) {
	api := &fakeTranscriber{}
	s := newWithTranscriber(Config{}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{Data: make([]byte, 2048)})
	require.False(t, outcome.Success)
	require.Equal(t, transcribe.ReasonServiceUnavailable, outcome.Reason)
	require.Contains(t, outcome.Message, "ASSEMBLYAI_API_KEY")
	require.Zero(t, api.calls)
}

func TestTranscribeSuccess(t *testing.T) {
	api := &fakeTranscriber{result: assemblyai.Transcript{
		Status:     assemblyai.TranscriptStatusCompleted,
		Text:       ptr(" Whey Protein "),
		Confidence: ptr(0.92),
	}}
	s := newWithTranscriber(Config{APIKey: "key"}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{Data: []byte("RIFFdata")})
	require.True(t, outcome.Success)
	require.Equal(t, "Whey Protein", outcome.Text)
	require.Equal(t, 0.92, outcome.Confidence)
	require.Equal(t, 1, api.calls)
	require.Equal(t, []byte("RIFFdata"), api.body)
	require.Equal(t, assemblyai.TranscriptLanguageCode("pt"), api.language)
}

func TestTranscribeMissingConfidenceIsUnknown(t *testing.T) {
	api := &fakeTranscriber{result: assemblyai.Transcript{Text: ptr("creatina")}}
	s := newWithTranscriber(Config{APIKey: "key", LanguageCode: "en"}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{})
	require.True(t, outcome.Success)
	require.Equal(t, transcribe.UnknownConfidence, outcome.Confidence)
	require.Equal(t, assemblyai.TranscriptLanguageCode("en"), api.language)
}

func TestTranscribeEmptyTextIsNoSpeech(t *testing.T) {
	api := &fakeTranscriber{result: assemblyai.Transcript{Text: ptr("   ")}}
	s := newWithTranscriber(Config{APIKey: "key"}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{})
	require.False(t, outcome.Success)
	require.Equal(t, transcribe.ReasonNoSpeech, outcome.Reason)
}

func TestTranscribeServiceErrorIsSingleAttempt(t *testing.T) {
	api := &fakeTranscriber{err: errors.New("dial tcp: lookup api.assemblyai.com: no such host")}
	s := newWithTranscriber(Config{APIKey: "key"}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{})
	require.False(t, outcome.Success)
	require.Equal(t, transcribe.ReasonNetwork, outcome.Reason)
	require.Contains(t, outcome.Err, "assemblyai transcribe")
	require.Equal(t, 1, api.calls)
}

func TestTranscribeTranscriptStatusError(t *testing.T) {
	api := &fakeTranscriber{result: assemblyai.Transcript{
		Status: assemblyai.TranscriptStatusError,
		Error:  ptr("Invalid API key"),
	}}
	s := newWithTranscriber(Config{APIKey: "key"}, api, nil)

	outcome := s.Transcribe(context.Background(), transcribe.Audio{})
	require.False(t, outcome.Success)
	require.Equal(t, transcribe.ReasonServiceUnavailable, outcome.Reason)
}

func TestDefaults(t *testing.T) {
	s := New(Config{APIKey: "key"}, nil)
	require.Equal(t, "assemblyai", s.Name())
	require.Equal(t, "pt", s.cfg.LanguageCode)
	require.Equal(t, 30*time.Second, s.SafetyTimeout())
}
