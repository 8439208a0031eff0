package wiegand

import (
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// Logger defines the logging interface used by readers and strategies.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// Strategy interprets the frames collected in a Buffer.
//
// Timeout is called from the reader loop once the data lines have gone quiet.
// When Completed reports true the reader takes Result and calls Reset.
// Implementations share the reader's Buffer and run on its goroutine only.
type Strategy interface {
	Timeout(now time.Time)
	Completed() bool
	Result() credential.Credential
	Reset()
}

// pinReader is a Strategy that yields a PIN code.
type pinReader interface {
	Strategy
	Pin() string
}
