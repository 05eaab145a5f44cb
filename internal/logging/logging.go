// Package logging provides the structured logger used across config-archiver.
package logging

// Logger is implemented by ZeroLogger. keyvals are alternating key/value
// pairs, e.g. log.Info("added entry", "name", name).
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}
