// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

// Logger defines the interface for structured logging used by pipeline stages
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that attaches fields to every record
	With(fields ...Field) Logger
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value any
}

// F creates a new Field
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err creates an "error" field
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// OrNop returns l, or a no-op logger when l is nil
func OrNop(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// NoOpLogger discards everything (useful for tests)
type NoOpLogger struct{}

func (NoOpLogger) Debug(_ string, _ ...Field) {}
func (NoOpLogger) Info(_ string, _ ...Field)  {}
func (NoOpLogger) Warn(_ string, _ ...Field)  {}
func (NoOpLogger) Error(_ string, _ ...Field) {}

// With returns the same no-op logger
func (n NoOpLogger) With(_ ...Field) Logger { return n }
