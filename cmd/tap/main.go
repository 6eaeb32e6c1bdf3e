package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/K13094/tap/internal/app"
	"github.com/K13094/tap/internal/config"
)

func main() {
	iface := flag.String("interface", "", "monitor-mode WiFi interface (overrides config)")
	cfgPath := flag.String("config", "/etc/tap/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *iface)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tap: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureTapUUID(config.DefaultUUIDFile); err != nil {
		fmt.Fprintf(os.Stderr, "tap: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tap: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		a.Log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}
