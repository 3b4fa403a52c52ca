// Command forwarded-echo answers every request with the reconciled
// forwarding view of that request as JSON. It is useful for checking what a
// chain of proxies actually tells an origin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abczzz13/forwarded"
	forwardedprom "github.com/abczzz13/forwarded/prometheus"
	"github.com/jessevdk/go-flags"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	ListenAddr  string   `short:"a" long:"addr" description:"Listen address eg 127.0.0.1:8080" default:":8080"`
	MetricsAddr string   `short:"m" long:"metrics-addr" description:"Listen address for /metrics, empty disables it" default:":9090"`
	Filter      []string `short:"f" long:"filter" description:"Keep only addresses matching this glob or CIDR (repeatable)"`
	PublicOnly  bool     `short:"p" long:"public-only" description:"Drop private, loopback and link-local addresses"`
	RFC7239Only bool     `long:"rfc7239-only" description:"Ignore vendor headers and use Forwarded alone"`
	LogFormat   string   `long:"log-format" description:"Log output format" choice:"text" choice:"json" default:"text"`
	Debug       bool     `short:"d" long:"debug" description:"Log every header the reconciler consumes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, opts options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func reconcilerOptions(opts options, logger *slog.Logger, registerer prom.Registerer) []forwarded.Option {
	reconcilerOpts := []forwarded.Option{
		forwarded.WithLogger(logger),
		forwardedprom.WithRegisterer(registerer),
	}

	if len(opts.Filter) > 0 {
		reconcilerOpts = append(reconcilerOpts, forwarded.WithFilter(opts.Filter...))
	}
	if opts.PublicOnly {
		reconcilerOpts = append(reconcilerOpts, forwarded.PresetPublicOnly())
	}
	if opts.RFC7239Only {
		reconcilerOpts = append(reconcilerOpts, forwarded.PresetRFC7239Only())
	}

	return reconcilerOpts
}

func newEchoHandler(reconciler *forwarded.Reconciler, logger *slog.Logger) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, ok := forwarded.FromContext(r.Context())
		if !ok {
			http.Error(w, "request could not be reconciled", http.StatusBadRequest)
			return
		}

		logger.InfoContext(r.Context(), "request reconciled",
			"method", r.Method,
			"path", r.URL.Path,
			"ips", result.IPs,
			"proto", result.Proto,
			"host", result.Host,
		)

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.WarnContext(r.Context(), "writing response", "error", err)
		}
	})

	return reconciler.Middleware(echo)
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	registry := prom.NewRegistry()

	reconciler, err := forwarded.New(reconcilerOptions(opts, logger, registry)...)
	if err != nil {
		return fmt.Errorf("creating reconciler: %w", err)
	}

	servers := []*http.Server{{
		Addr:              opts.ListenAddr,
		Handler:           newEchoHandler(reconciler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}}

	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
