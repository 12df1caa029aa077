// Command minimessengerd is the MiniMessenger daemon. It owns the message
// file, keeps it loaded, and serves the API the minimessenger CLI talks to.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/buildinfo"
	"github.com/Krakenied/MiniMessenger/internal/config"
	"github.com/Krakenied/MiniMessenger/internal/engine"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
	"github.com/Krakenied/MiniMessenger/internal/resources"
	"github.com/Krakenied/MiniMessenger/internal/socket"
	"github.com/Krakenied/MiniMessenger/internal/watch"
	"github.com/Krakenied/MiniMessenger/pkg/api"
)

// configEnv overrides the config file location.
const configEnv = "MINIMESSENGER_CONFIG"

func main() {
	defer log.Sync()

	// load config
	cfg, err := config.New(os.Getenv(configEnv)).Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	file, err := cfg.MessagesFile()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.Info("starting minimessengerd", "version", buildinfo.String(), "file", file)

	// build deps
	hub := audience.NewHub(
		audience.WithInboxSize(cfg.Hub.InboxSize),
		audience.WithConsole(cfg.Hub.Console),
	)

	opts := []messenger.Opt{messenger.WithServer(hub)}
	if cfg.Messenger.Root != "" {
		opts = append(opts, messenger.WithRoot(cfg.Messenger.Root))
	}
	if len(cfg.Messenger.Materials) > 0 {
		opts = append(opts, messenger.WithMaterials(messenger.MaterialSet(cfg.Messenger.Materials...)))
	}
	msgr, err := messenger.New(resources.FS, messenger.Paths{
		Resource: resources.MessagesFile,
		File:     file,
		Prefix:   cfg.Messenger.PrefixPath,
		Messages: cfg.Messenger.MessagesPath,
	}, opts...)
	if err != nil {
		log.Fatalf("messenger error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(msgr, hub, engine.WithReloadInterval(cfg.Messenger.ReloadInterval))
	eng.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)

	// start the api over unix socket
	apiSrv := api.New(eng, hub, msgr)
	sockPath := cfg.Socket.Path
	g.Go(func() error {
		if err := apiSrv.ListenAndServe(sockPath, socket.WithMode(cfg.Socket.Mode)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// reload when the file changes
	var watcher *watch.Watcher
	if cfg.Messenger.Watch {
		watcher, err = watch.New(file, cfg.Messenger.Debounce, func() {
			if err := eng.Reload(gctx); err != nil {
				log.Warnf("reload after file change failed: %v", err)
			}
		})
		if err != nil {
			log.Warnf("not watching %s: %v", file, err)
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down…")

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown error: %v", err)
		}
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				log.Errorf("watcher close error: %v", err)
			}
		}
		return nil
	})

	err = g.Wait()
	eng.Close()
	if cerr := socket.Cleanup(sockPath); cerr != nil {
		log.Warnf("socket cleanup: %v", cerr)
	}
	if err != nil && !errors.Is(err, watch.ErrClosed) {
		log.Fatalf("daemon error: %v", err)
	}
}
