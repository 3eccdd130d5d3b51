package xr

import (
	"fmt"
	"os"
	"sync"
)

type stdoutLogger struct {
	mu sync.Mutex
	w  *os.File
}

// NewStdoutLogger returns a Logger writing to standard output.
func NewStdoutLogger() Logger {
	return &stdoutLogger{w: os.Stdout}
}

func (l *stdoutLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}
