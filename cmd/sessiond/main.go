package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/lzztt/session-minimal/pkg/clientip"
	"github.com/lzztt/session-minimal/pkg/config"
	"github.com/lzztt/session-minimal/pkg/httpserver"
	"github.com/lzztt/session-minimal/pkg/logger"
	"github.com/lzztt/session-minimal/pkg/metrics"
	"github.com/lzztt/session-minimal/pkg/requestid"
	"github.com/lzztt/session-minimal/pkg/session"
	"github.com/lzztt/session-minimal/pkg/store"
)

var Version = "dev"

func versionString() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range info.Settings {
			if kv.Key == "vcs.revision" {
				return "dev-" + kv.Value
			}
		}
	}
	return Version
}

// appConfig groups every environment-driven setting of the binary.
type appConfig struct {
	Log     logger.Config
	HTTP    httpserver.Config
	Session session.Config
}

func main() {
	cmd := &cli.Command{
		Name:    "sessiond",
		Usage:   "HTTP service with cookie-backed sessions",
		Version: versionString(),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "env-file", Usage: "load variables from .env files before reading the environment"},
			&cli.StringFlag{Name: "log.level", Usage: "log level (debug, info, warn, error); overrides LOG_LEVEL"},
			&cli.StringFlag{Name: "log.format", Usage: "log format (json, text); overrides LOG_FORMAT"},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address; overrides HTTP_ADDR"},
				},
				Action: serveAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Command) (appConfig, error) {
	if files := c.StringSlice("env-file"); len(files) > 0 {
		if err := config.LoadEnv(files...); err != nil {
			return appConfig{}, err
		}
	}

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return appConfig{}, err
	}

	if v := c.String("log.level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log.format"); v != "" {
		cfg.Log.Format = logger.Format(v)
	}
	if v := c.String("addr"); v != "" {
		cfg.HTTP.Addr = v
	}
	return cfg, nil
}

func serveAction(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithAttr(logger.Component("sessiond")),
		logger.WithContextExtractors(requestid.Extractor, clientip.Extractor),
	)
	logger.SetAsDefault(log)

	collector := metrics.New(prometheus.DefaultRegisterer)
	mem := store.NewMemory(store.WithOnChange(collector.StoreSize))
	defer mem.Close()

	sessions := session.NewFromConfig(cfg.Session,
		session.WithBackend(mem),
		session.WithLogger(log),
		session.WithObserver(collector),
	)

	router := newRouter(routerDeps{
		log:      log,
		sessions: sessions,
		metrics:  collector,
		gatherer: prometheus.DefaultGatherer,
	})

	log.InfoContext(ctx, "starting", "version", versionString(), "session_key", sessions.Key())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}
