package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/pagecheck/internal/config"
	"github.com/dgnsrekt/pagecheck/internal/demoapp"
	"github.com/dgnsrekt/pagecheck/internal/logging"
	"github.com/dgnsrekt/pagecheck/internal/netutil"
)

func main() {
	cfg, err := config.LoadDemo()
	if err != nil {
		slog.Error("failed to load demo config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("demo config loaded",
		"bind_addr", cfg.BindAddr,
		"port_fallbacks", cfg.PortFallbacks,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	candidates, err := netutil.FallbackAddrs(cfg.BindAddr, cfg.PortFallbacks)
	if err != nil {
		slog.Error("failed to parse bind address", "bind_addr", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, candidates, cfg.PortFallbacks > 0)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	h := demoapp.NewServer(demoapp.DemoItems(), slog.Default())
	srv := &http.Server{Addr: bindAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		slog.Info("demo app listening", "addr", bindAddr, "url", "http://"+bindAddr+"/", "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("demo app server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("demo app shutdown failed", "error", err)
	}
}
