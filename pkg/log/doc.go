// Package log provides structured logging for epiview services.
//
// Loggers are constructed explicitly and passed by dependency injection;
// there is no package-level default logger. A Logger carries a set of bound
// fields (component, ids) and writes formatted entries to one or more
// outputs. Formatting is pluggable: JSONFormatter for machine consumption,
// TextFormatter for terminals.
//
// Typical use:
//
//	logger := log.NewLogger(log.WithLevel(log.DebugLevel))
//	logger = logger.WithComponent("episodes")
//	logger.Info("refresh done", log.Int("count", n), log.Int64("dur_ms", ms))
package log
