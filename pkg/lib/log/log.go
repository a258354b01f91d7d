// Package log has the logger types accepted by the stackrun SDK.
//
// The SDK is silent unless a [Logger] is set in lib.Config. Run events are
// logged through it (hooks, process exits, tunnel planning, history storage),
// while the processes output always goes to the configured writers.
//
// An adapter over log/slog looks like:
//
//	type slogLogger struct{ l *slog.Logger }
//
//	func (s slogLogger) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
//	func (s slogLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }
//	func (s slogLogger) WithValues(kv log.Kv) log.Logger {
//	    l := s.l
//	    for k, v := range kv {
//	        l = l.With(k, v)
//	    }
//	    return slogLogger{l: l}
//	}
//	// Warningf, Errorf, WithCtxValues and SetValuesOnCtx...
package log

import "github.com/slok/stackrun/internal/log"

// Logger is implemented by the loggers passed to the SDK.
type Logger = log.Logger

// Kv are the structured key-values attached with Logger.WithValues, e.g the `run-id`.
type Kv = log.Kv

// Noop discards everything, it's the SDK default.
var Noop = log.Noop
