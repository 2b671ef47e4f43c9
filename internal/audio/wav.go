package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// ErrNotWAV reports that a blob is not a RIFF/WAVE container.
var ErrNotWAV = errors.New("not a wav file")

// EncodeWAV wraps mono s16le PCM into an in-memory RIFF/WAVE blob.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0")
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	out := &writerseeker.WriterSeeker{}
	encoder := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return nil, fmt.Errorf("encoder write buffer: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encoder close: %w", err)
	}

	blob, err := io.ReadAll(out.Reader())
	if err != nil {
		return nil, fmt.Errorf("read wav into memory: %w", err)
	}
	return blob, nil
}

// DecodeWAV returns the first channel of a 16-bit WAV blob as s16le PCM.
func DecodeWAV(blob []byte) ([]byte, int, error) {
	decoder := wav.NewDecoder(bytes.NewReader(blob))
	if !decoder.IsValidFile() {
		return nil, 0, ErrNotWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if decoder.BitDepth != 16 {
		return nil, 0, fmt.Errorf("unsupported wav bit depth %d", decoder.BitDepth)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(buf.Data[i*channels])))
	}
	return pcm, buf.Format.SampleRate, nil
}

// WriteDebugDump stores a captured blob under dir for offline inspection.
func WriteDebugDump(dir string, sessionID string, blob []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	path := filepath.Join(dir, sessionID+".wav")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return "", fmt.Errorf("write debug dump: %w", err)
	}
	return path, nil
}
