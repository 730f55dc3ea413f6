package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aponysus/await/controlplane"
	httpint "github.com/aponysus/await/integrations/http"
	otelobs "github.com/aponysus/await/integrations/otel"
	promobs "github.com/aponysus/await/integrations/prometheus"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

func newHTTPCommand(root *rootOptions) *cobra.Command {
	var (
		name        string
		url         string
		maxWait     time.Duration
		timeout     time.Duration
		logAttempts bool
		metricsAddr string
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Poll a URL until a named waiter succeeds",
		Long: `GET a URL repeatedly, decoding each JSON response, until the acceptors of
the named waiter reach success or failure, or --max-wait is spent.

Non-2xx responses are matched by errorType acceptors using the error code in
the JSON body ("code", "Code", "errorCode" or "__type") or the status text
without spaces, e.g. "NotFound". The final response is printed as JSON.`,
		Example: `  awaitctl http --spec ./waiters --waiter jobs.Done --url http://localhost:8080/jobs/42 --max-wait 5m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" || url == "" {
				return errors.New("--waiter and --url are required")
			}
			if len(root.specPaths) == 0 {
				return errNoSpecPaths
			}
			ctx := cmd.Context()

			src, err := controlplane.NewFileSource(root.specPaths, controlplane.WithLogger(log.Logger))
			if err != nil {
				return err
			}

			observers := []observe.Observer{observe.NewLogObserver(log.Logger)}

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				obs, err := promobs.NewObserver(reg, promobs.Config{})
				if err != nil {
					return err
				}
				observers = append(observers, obs)

				stop, err := serveMetrics(metricsAddr, reg)
				if err != nil {
					return err
				}
				defer stop()
			}

			if trace {
				exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
				if err != nil {
					return fmt.Errorf("failed to create trace exporter: %w", err)
				}
				tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = tp.Shutdown(shutdownCtx)
				}()
				observers = append(observers, otelobs.NewObserver(tp))
			}

			exec := waiter.NewDefaultExecutor(
				waiter.WithProvider(src),
				waiter.WithObserver(observe.Multi(observers...)),
				waiter.WithLogger(log.Logger),
			)

			client := &nethttp.Client{Timeout: timeout}
			w, err := waiter.ForKey(ctx, exec, policy.ParseKey(name), httpint.Get[any](client, url))
			if err != nil {
				return err
			}

			out, err := w.WaitForOutput(ctx, struct{}{}, maxWait, waiter.WithAttemptLogging(logAttempts))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&name, "waiter", "w", "", "waiter key, e.g. jobs.Done")
	cmd.Flags().StringVar(&url, "url", "", "URL to poll")
	cmd.Flags().DurationVar(&maxWait, "max-wait", 5*time.Minute, "total wait budget")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout of each request")
	cmd.Flags().BoolVar(&logAttempts, "log-attempts", false, "log every attempt at debug level")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
	cmd.Flags().BoolVar(&trace, "trace", false, "write OpenTelemetry spans to stderr")

	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &nethttp.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
