package runner

import (
	"bytes"
	"io"
	"sync"
)

// lineWriter writes only complete lines to the shared writer so lines of
// different processes never get mixed.
type lineWriter struct {
	mu  *sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func newLineWriter(mu *sync.Mutex, out io.Writer) *lineWriter {
	return &lineWriter{mu: mu, out: out}
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.buf.Write(p)

	idx := bytes.LastIndexByte(l.buf.Bytes(), '\n')
	if idx < 0 {
		return len(p), nil
	}

	lines := l.buf.Next(idx + 1)
	l.mu.Lock()
	_, err := l.out.Write(lines)
	l.mu.Unlock()
	if err != nil {
		return 0, err
	}

	return len(p), nil
}

// Flush writes the pending incomplete line, if any.
func (l *lineWriter) Flush() error {
	if l.buf.Len() == 0 {
		return nil
	}

	l.buf.WriteByte('\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.out.Write(l.buf.Bytes())
	l.buf.Reset()

	return err
}
