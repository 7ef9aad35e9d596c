// Package logging decouples the transfer pipeline from a concrete logging
// framework. Components receive a Logger through their constructors so tests
// can capture output with MockLogger.
package logging

// Logger is the structured logger used by every component of the transfer.
// The With methods return a derived logger and leave the receiver untouched.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	WithError(err error) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields ...Field) Logger

	// Fatal logs at fatal level and exits the process.
	Fatal(msg string, fields ...Field)
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for building a Field inline.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
