package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/haukened/geo-gate/internal/edge/common/log"
	"github.com/haukened/geo-gate/internal/edge/gateways/wire"
)

// maxEventSize bounds a single newline-delimited event.
const maxEventSize = 1 << 20

// EventTransport classifies newline-delimited host events read from an io.Reader
// and writes one encoded outcome per line. Events are handled sequentially, so
// output order matches input order. Lines that fail to decode or exceed
// maxEventSize are logged and skipped.
type EventTransport struct {
	in     io.Reader
	out    io.Writer
	codec  wire.EventCodec
	logger log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewEventTransport creates a new event transport instance.
func NewEventTransport(in io.Reader, out io.Writer, codec wire.EventCodec, logger log.Logger) *EventTransport {
	return &EventTransport{
		in:     in,
		out:    out,
		codec:  codec,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the read loop.
func (t *EventTransport) Start(ctx context.Context, c Classifier) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("event transport already running")
	}
	t.running = true

	t.logger.Info(map[string]any{"transport": string(TransportEvent)}, "Edge transport started")

	go t.readLoop(ctx, c)
	return nil
}

// Stop signals the read loop to exit after the current event. A read blocked on
// the input stream returns only when the stream yields data or is closed.
func (t *EventTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	close(t.stopCh)

	t.logger.Info(map[string]any{"transport": string(TransportEvent)}, "Edge transport stopped")
	return nil
}

// Address describes the transport; it has no network address.
func (t *EventTransport) Address() string { return "stdio" }

// Done is closed when the read loop exits.
func (t *EventTransport) Done() <-chan struct{} { return t.done }

func (t *EventTransport) readLoop(ctx context.Context, c Classifier) {
	defer close(t.done)

	r := bufio.NewReaderSize(t.in, 64*1024)
	w := bufio.NewWriter(t.out)
	defer func() {
		if err := w.Flush(); err != nil {
			t.logger.Warn(map[string]any{"error": err}, "Failed to flush event output")
		}
	}()

	var buf []byte
	lineNum := 0
	for {
		line, tooLong, err := readEvent(r, buf[:0])
		buf = line
		if err == io.EOF && len(line) == 0 && !tooLong {
			return
		}
		if err != nil && err != io.EOF {
			t.logger.Error(map[string]any{"error": err}, "Failed to read events")
			return
		}

		select {
		case <-ctx.Done():
			t.logger.Debug(nil, "Event transport stopping due to context cancellation")
			return
		case <-t.stopCh:
			t.logger.Debug(nil, "Event transport stopping due to stop signal")
			return
		default:
		}

		lineNum++
		switch {
		case tooLong:
			t.logger.Warn(map[string]any{"line": lineNum, "max_bytes": maxEventSize}, "Skipping oversized event")
		case len(line) == 0:
		default:
			if herr := t.handleEvent(line, c, w); herr != nil {
				t.logger.Warn(map[string]any{"line": lineNum, "error": herr}, "Skipping event")
			} else if ferr := w.Flush(); ferr != nil {
				t.logger.Error(map[string]any{"error": ferr}, "Failed to write event output")
				return
			}
		}

		if err == io.EOF {
			return
		}
	}
}

// readEvent reads one newline-terminated event into buf, without the line ending.
// A line longer than maxEventSize is consumed and discarded, and reported as tooLong.
func readEvent(r *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxEventSize+2 {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if rerr == bufio.ErrBufferFull {
			continue
		}
		buf = bytes.TrimRight(buf, "\r\n")
		if !tooLong && len(buf) > maxEventSize {
			tooLong = true
			buf = buf[:0]
		}
		return buf, tooLong, rerr
	}
}

func (t *EventTransport) handleEvent(line []byte, c Classifier, w *bufio.Writer) error {
	ev, err := t.codec.DecodeEvent(line)
	if err != nil {
		return err
	}
	out := c.Classify(ev.Request)

	t.logger.Debug(map[string]any{
		"path":    ev.Request.Path,
		"country": ev.Request.Country(),
		"outcome": out.Kind.String(),
	}, "Classified event")

	data, err := t.codec.EncodeOutcome(ev, out)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
