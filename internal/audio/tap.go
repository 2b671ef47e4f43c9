package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Tap is a second, independent record stream on a source that keeps only the
// most recent window of samples for analysis. Nothing it reads is recorded.
type Tap struct {
	client *pulse.Client
	stream *pulse.RecordStream

	mu     sync.Mutex
	ring   []float64
	next   int
	filled bool
	closed bool
}

// OpenTap starts an analysis stream holding the latest window samples.
func OpenTap(ctx context.Context, selected Device, sampleRate int, window int) (*Tap, error) {
	if window <= 0 {
		return nil, fmt.Errorf("tap window must be > 0")
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrNoDevice, selected.ID, err)
	}

	tap := newTap(window)
	tap.client = client
	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(tap.Write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(sampleRate),
		pulse.RecordBufferFragmentSize(uint32(window*2)),
		pulse.RecordMediaName(appName+" voice activity"),
	)
	if err != nil {
		client.Close()
		return nil, classifyStreamError(err)
	}
	tap.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		tap.Close()
	}()
	return tap, nil
}

func newTap(window int) *Tap {
	return &Tap{ring: make([]float64, window)}
}

// Write ingests s16le PCM, normalising each sample to [-1, 1).
func (t *Tap) Write(buffer []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	for i := 0; i+1 < len(buffer); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buffer[i:]))
		t.ring[t.next] = float64(sample) / math.MaxInt16
		t.next++
		if t.next == len(t.ring) {
			t.next = 0
			t.filled = true
		}
	}
	return len(buffer), nil
}

// Window copies the latest samples into dst in chronological order. Samples
// not yet received read as silence.
func (t *Tap) Window(dst []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.ring)
	for i := range dst {
		dst[i] = 0
	}
	if len(dst) < n {
		n = len(dst)
	}
	offset := len(dst) - n
	for i := 0; i < n; i++ {
		idx := t.next - n + i
		if idx < 0 {
			if !t.filled {
				continue
			}
			idx += len(t.ring)
		}
		dst[offset+i] = t.ring[idx]
	}
}

// Close releases the analysis stream. Safe to call repeatedly.
func (t *Tap) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	if t.stream != nil {
		t.stream.Stop()
		t.stream.Close()
	}
	if t.client != nil {
		t.client.Close()
	}
}
