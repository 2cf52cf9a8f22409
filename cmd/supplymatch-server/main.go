package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"supplymatch/internal/catalog"
	"supplymatch/internal/config"
	"supplymatch/internal/logging"
	"supplymatch/internal/matcher"
	"supplymatch/internal/pipeline"
	"supplymatch/internal/server"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithLogger(ctx, &logger)

	src, closeFn, err := catalog.OpenSource(cfg)
	must(err)
	defer closeFn()

	completer, err := matcher.NewCompleter(ctx, cfg)
	must(err)

	router := server.NewRouter(pipeline.New(cfg, src, completer), logger, server.Options{
		Debug:          cfg.HTTPDebug,
		MaxUploadBytes: int64(cfg.HTTPMaxUploadMiB) << 20,
	})
	must(server.ListenAndServe(ctx, cfg.HTTPAddr, router))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
