package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/justapithecus/msival/iox"
	"github.com/justapithecus/msival/types"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("journal closed")

// Writer appends frames to a journal. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	frames int64
	closed bool
}

// NewWriter writes frames to w. Close does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Create truncates or creates the journal file at path.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	return &Writer{w: f, closer: f}, nil
}

// WriteOutput appends an output frame.
func (w *Writer) WriteOutput(out *types.Output) error {
	if out == nil {
		return errors.New("nil output")
	}
	return w.write(&OutputFrame{Type: OutputType, Version: types.JournalVersion, Output: out})
}

// WriteSummary appends the summary frame.
func (w *Writer) WriteSummary(summary *types.RunSummary) error {
	if summary == nil {
		return errors.New("nil summary")
	}
	return w.write(&SummaryFrame{Type: SummaryType, Version: types.JournalVersion, Summary: summary})
}

func (w *Writer) write(v any) error {
	frame, err := marshalFrame(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write journal frame: %w", err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close closes the underlying file when the writer owns it.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Journal is a decoded journal.
type Journal struct {
	Outputs []*types.Output `json:"outputs" yaml:"outputs"`
	// Summary is nil when the run did not finish writing the journal.
	Summary *types.RunSummary `json:"summary" yaml:"summary"`
}

// Complete reports whether the journal ends with a summary frame.
func (j *Journal) Complete() bool {
	return j.Summary != nil
}

// Read decodes every frame from r. Frames after the summary are rejected.
func Read(r io.Reader) (*Journal, error) {
	dec := NewFrameDecoder(r)
	j := &Journal{}
	for {
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return j, nil
		}
		if err != nil {
			return j, err
		}
		if j.Summary != nil {
			return j, &FrameError{Kind: FrameErrorDecode, Msg: "frame after summary"}
		}

		frame, err := DecodeFrame(payload)
		if err != nil {
			return j, err
		}
		switch f := frame.(type) {
		case *OutputFrame:
			j.Outputs = append(j.Outputs, f.Output)
		case *SummaryFrame:
			j.Summary = f.Summary
		}
	}
}

// ReadFile decodes the journal at path.
func ReadFile(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer iox.DiscardClose(f)
	return Read(f)
}
