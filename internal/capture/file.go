package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/muurk/brewlink/internal/logging"
	"go.uber.org/zap"
)

// Sink receives captured records.
type Sink interface {
	Write(rec Record)
}

// Writer appends records to a capture file. It is safe for concurrent use.
type Writer struct {
	path    string
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	count   int
}

// Create opens path for appending, creating it and its directory if needed.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create capture directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	return &Writer{path: path, file: f, encoder: newEncoder(f)}, nil
}

// Write appends rec. Failures are logged and dropped so capture never stalls
// the relay. Writes after Close are ignored.
func (w *Writer) Write(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if err := w.encoder.Encode(rec); err != nil {
		logging.Error("Failed to write capture record",
			zap.String("filename", w.path),
			zap.Error(err),
		)
		return
	}
	w.count++
}

// Count returns how many records have been written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

var _ Sink = (*Writer)(nil)

// Reader streams records from a capture.
type Reader struct {
	decoder *cbor.Decoder
	closer  io.Closer
}

// NewReader reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{decoder: newDecoder(r)}
}

// Open reads records from the capture file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{decoder: newDecoder(f), closer: f}, nil
}

// Next returns the next record, or io.EOF at the end of the capture.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.decoder.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	return rec, nil
}

// Close closes the underlying file, if Open created one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll decodes every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var out []Record
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}
