// Package demo wires a small ensemble system for ensemblectl run: a greeter
// actor per visitor name and a counting service behind it, with a
// read-only statistics endpoint and an optional watched configuration file
// whose changes are logged and take effect on the next restart.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lguibr/ensemble"
)

// NewRunCommand builds `ensemblectl run`.
func NewRunCommand() *cobra.Command {
	var configPath string
	var addr string
	var traceToStdout bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo greeter system and serve /statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if traceToStdout {
				shutdown, err := installStdoutTracing()
				if err != nil {
					return err
				}
				defer shutdown(context.Background())
				cfg.TracingEnabled = true
			}

			return run(cfg, addr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file (optional; changes are logged and apply on restart)")
	flags.StringVar(&addr, "addr", ":8080", "address for the /statistics HTTP endpoint")
	flags.BoolVar(&traceToStdout, "trace-stdout", false, "print dispatch spans to stdout")

	return cmd
}

// loadConfig reads ensemble.Config from the environment (ENSEMBLECTL_*) and
// optionally a file. The file is watched, but a change is only logged: the
// loaded Config is not updated. The command's flags are not read as config
// keys.
func loadConfig(path string, flags *pflag.FlagSet) (ensemble.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENSEMBLECTL")
	v.AutomaticEnv()

	cfg := ensemble.DefaultConfig()
	v.SetDefault("actorIdleWindow", cfg.ActorIdleWindow)
	v.SetDefault("scheduleJitter", cfg.ScheduleJitter)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config changed, reload on next restart", slog.String("file", e.Name))
		})
	}

	cfg.ActorIdleWindow = v.GetDuration("actorIdleWindow")
	cfg.ScheduleJitter = v.GetDuration("scheduleJitter")
	return cfg, nil
}

func installStdoutTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

type visitor struct{ name string }
type greet struct{}

func (visitor) Activate(a *ensemble.ActorAssistant) any {
	a.SendToService(visitCounter{}, struct{}{})
	count := 0
	return &count
}

func (v visitor) Receive(value any, msg *ensemble.Message, a *ensemble.ActorAssistant) {
	count := value.(*int)
	switch msg.Value.(type) {
	case greet:
		*count++
		msg.Respond(fmt.Sprintf("hello, %v (visit #%d)", a.ID(), *count))
	}
}

type visitCounter struct{}

func (visitCounter) Initialize(a *ensemble.ServiceAssistant) (any, ensemble.ServiceConfig) {
	n := 0
	return &n, ensemble.ServiceConfig{Concurrency: ensemble.ConcurrencyFixed(1)}
}

func (visitCounter) Receive(value any, msg *ensemble.Message, a *ensemble.ServiceAssistant) {
	counter := value.(*int)
	*counter++
}

func run(cfg ensemble.Config, addr string) error {
	coordinator := ensemble.NewSystemCoordinator(cfg, ensemble.WithLogger(slog.Default()))

	router := chi.NewRouter()
	router.Get("/statistics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(coordinator.Statistics())
	})
	router.Get("/greet/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		reply, err := ensemble.CallActor(ctx, coordinator.Actors, visitor{}, name, greet{})
		if err != nil {
			http.Error(w, err.Error(), http.StatusGatewayTimeout)
			return
		}
		fmt.Fprintln(w, reply)
	})

	server := &http.Server{Addr: addr, Handler: router}

	slog.Info("ensemblectl serving", slog.String("addr", addr))

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-interruptSignal():
		coordinator.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coordinator.AwaitStopped(ctx)
		return server.Close()
	}
}

func interruptSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	return ch
}
