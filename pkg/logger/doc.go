// Package logger builds *slog.Logger instances with functional options and
// provides attribute helpers so field names stay consistent across packages.
//
// New wraps the JSON or text handler in a ContextHandler that runs registered
// ContextExtractor callbacks on every record, which is how request ids reach
// log lines without being passed around explicitly.
//
//	log := logger.New(
//	    logger.WithConfig(cfg.Log),
//	    logger.WithContextExtractors(requestid.Extractor),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "session committed",
//	    logger.Action("saved"),
//	    logger.SessionID(sid),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
