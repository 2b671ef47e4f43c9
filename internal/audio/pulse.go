package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const appName = "voxsearch"

var (
	// ErrNoDevice reports that no usable capture device or audio server exists.
	ErrNoDevice = errors.New("audio device unsupported")
	// ErrDenied reports that the audio server refused access to the source.
	ErrDenied = errors.New("audio access denied")
	// ErrStopped reports an operation on a capture that already stopped.
	ErrStopped = errors.New("capture stopped")
)

// Format describes the PCM layout and processing hints requested for a stream.
type Format struct {
	SampleRate       int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// BytesPerSecond is the byte rate of mono s16le PCM at f.SampleRate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * 2
}

// wantsFilter reports whether any server-side voice processing was requested.
func (f Format) wantsFilter() bool {
	return f.EchoCancellation || f.NoiseSuppression || f.AutoGainControl
}

// CaptureOptions controls stream format negotiation and chunk cadence.
type CaptureOptions struct {
	Preferred     Format
	Fallback      Format
	FlushInterval time.Duration
	MediaName     string
}

// Capture streams PCM chunks from one selected Pulse source. A chunk is
// emitted every flush interval worth of audio, or on an explicit Flush.
type Capture struct {
	device Device
	format Format

	client *pulse.Client
	stream *pulse.RecordStream

	chunkSize int
	chunks    chan []byte
	stopCh    chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture opens a mono s16 record stream in the preferred format and
// retries once with the fallback format if the server rejects it.
func StartCapture(ctx context.Context, selected Device, opts CaptureOptions) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrNoDevice, selected.ID, err)
	}

	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 100 * time.Millisecond
	}
	if opts.MediaName == "" {
		opts.MediaName = appName + " query"
	}

	capture := &Capture{
		device: selected,
		client: client,
		chunks: make(chan []byte, 256),
		stopCh: make(chan struct{}),
	}

	formats := []Format{opts.Preferred}
	if opts.Fallback.SampleRate > 0 && opts.Fallback != opts.Preferred {
		formats = append(formats, opts.Fallback)
	}

	var lastErr error
	for _, format := range formats {
		capture.format = format
		capture.chunkSize = chunkBytes(format, opts.FlushInterval)
		stream, err := client.NewRecord(
			pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE),
			pulse.RecordSource(source),
			pulse.RecordMono,
			pulse.RecordSampleRate(format.SampleRate),
			pulse.RecordBufferFragmentSize(uint32(capture.chunkSize)),
			pulse.RecordMediaName(opts.MediaName),
			pulse.RecordRawOption(voiceProcessing(format)),
		)
		if err != nil {
			lastErr = err
			continue
		}
		capture.stream = stream
		break
	}
	if capture.stream == nil {
		capture.Close()
		return nil, classifyStreamError(lastErr)
	}

	capture.stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

// chunkBytes sizes one flush interval of mono s16 audio, rounded to whole samples.
func chunkBytes(format Format, interval time.Duration) int {
	n := int(int64(format.BytesPerSecond()) * int64(interval) / int64(time.Second))
	if n%2 != 0 {
		n++
	}
	if n < 2 {
		n = 2
	}
	return n
}

// voiceProcessing asks the server for its echo-cancel filter chain when any
// voice processing flag is set.
func voiceProcessing(format Format) func(*pulseproto.CreateRecordStream) {
	return func(req *pulseproto.CreateRecordStream) {
		if !format.wantsFilter() {
			return
		}
		if req.Properties == nil {
			req.Properties = make(pulseproto.PropList)
		}
		req.Properties["filter.want"] = pulseproto.PropListString("echo-cancel")
		req.Properties["media.role"] = pulseproto.PropListString("phone")
	}
}

// classifyStreamError maps stream creation failures onto the package sentinels.
func classifyStreamError(err error) error {
	if err == nil {
		return fmt.Errorf("%w: create pulse record stream", ErrNoDevice)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access") || strings.Contains(msg, "denied") || strings.Contains(msg, "permission") {
		return fmt.Errorf("%w: create pulse record stream: %v", ErrDenied, err)
	}
	return fmt.Errorf("%w: create pulse record stream: %v", ErrNoDevice, err)
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Format returns the negotiated stream format.
func (c *Capture) Format() Format {
	return c.format
}

// Chunks returns the PCM stream as flush-sized byte slices.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Flush emits any partially filled chunk immediately.
func (c *Capture) Flush() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	chunk := append([]byte(nil), c.pending...)
	c.pending = c.pending[:0]
	c.mu.Unlock()

	select {
	case c.chunks <- chunk:
		return nil
	case <-c.stopCh:
		return ErrStopped
	}
}

// Stop halts the stream, flushes residual PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := append([]byte(nil), c.pending...)
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.chunks <- pending:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw Pulse frames and emits chunkSize slices to c.chunks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	chunks := splitChunks(&c.pending, c.chunkSize)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}

	return len(buffer), nil
}

// splitChunks removes every full size-byte chunk from the front of pending.
func splitChunks(pending *[]byte, size int) [][]byte {
	if size <= 0 {
		return nil
	}
	chunks := make([][]byte, 0, len(*pending)/size)
	for len(*pending) >= size {
		chunk := make([]byte, size)
		copy(chunk, (*pending)[:size])
		*pending = (*pending)[size:]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
