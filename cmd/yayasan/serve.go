package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-yayasan"
	"github.com/goliatone/go-yayasan/tokenstore"
	"github.com/goliatone/go-yayasan/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front",
	Long: `Run the server rendered site. Browser sessions are kept in the
configured token store (store.driver), one scope per browser.

Examples:
  yayasan serve                         # Listen on web.addr
  yayasan serve --addr :8080            # Override the address
  YAYASAN_STORE_DRIVER=redis yayasan serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default web.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Web.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := tokenstore.Open(ctx, tokenstore.Spec{
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.Path,
		DSN:       cfg.Store.DSN,
		RedisAddr: cfg.Store.RedisAddr,
	}, tokenstore.WithLogger(logger), tokenstore.WithTTL(cfg.Web.SessionTTL))
	if err != nil {
		return err
	}
	defer func() {
		if err := tokenstore.Close(store); err != nil {
			logger.Error("closing token store: %s", err)
		}
	}()

	var csrfKey []byte
	if cfg.Web.CSRFKey != "" {
		csrfKey = []byte(cfg.Web.CSRFKey)
	} else {
		printer.Warning("web.csrf_key is not set, form tokens will not survive a restart")
	}

	server, err := web.New(web.Options{
		Store:            store,
		API:              cfg,
		Routes:           cfg.GuardRoutes(),
		CookieName:       cfg.Web.CookieName,
		CookieSecure:     cfg.Web.CookieSecure,
		SessionTTL:       cfg.Web.SessionTTL,
		CSRFKey:          csrfKey,
		Logger:           logger,
		CheckTokenExpiry: true,
		Activity:         yayasan.LoggerActivitySink(logger),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down web front")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	if bs, ok := store.(*tokenstore.BunStore); ok {
		g.Go(func() error {
			pruneSessions(gctx, bs, cfg.Web.SessionTTL)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// pruneSessions drops browser scopes idle for longer than ttl until ctx ends
func pruneSessions(ctx context.Context, store *tokenstore.BunStore, ttl time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Prune(ctx, ttl)
			if err != nil {
				logger.Error("pruning sessions: %s", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned %d idle sessions", n)
			}
		}
	}
}
