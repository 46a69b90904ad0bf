// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run binds the listener first, so address errors surface immediately as
// ErrStart, then serves until the context is cancelled, the process receives
// SIGINT or SIGTERM, or Shutdown is called. In-flight requests get the
// configured shutdown timeout to finish.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// HealthCheckHandler provides liveness and readiness endpoints.
package httpserver
