// Package logger provides the structured logging interface used across pairfetch.
//
// It wraps zerolog behind a small Logger interface. Console output goes to
// stderr in a human readable form so that stdout stays free for the run
// summary; when a log file is configured every event is also appended to it
// as a JSON line.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("split", "train")
//	log.WithError(err).Warn("Hash file not found, continuing without validation")
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
