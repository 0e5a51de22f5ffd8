package servercli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hdt3213/minidis/config"
	"github.com/hdt3213/minidis/database"
	"github.com/hdt3213/minidis/gnet"
	"github.com/hdt3213/minidis/lib/logger"
	RedisServer "github.com/hdt3213/minidis/redis/server"
	"github.com/hdt3213/minidis/tcp"
	"github.com/hdt3213/minidis/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Version of minidis
const Version = "1.0.0"

var banner = `
           _       _     ___
 _ __ ___ (_)_ __ (_) __| (_)___
| '_ ' _ \| | '_ \| |/ _' | / __|
| | | | | | | | | | | (_| | \__ \
|_| |_| |_|_|_| |_|_|\__,_|_|___/
`

const metricsShutdownTimeout = 3 * time.Second

var (
	configFile string
	v          = viper.New()

	rootCmd = &cobra.Command{
		Use:   "minidis",
		Short: "minidis is a small redis style server keeping strings and lists in memory",
		Long: fmt.Sprintf(`minidis (v%s)

A small in-memory server speaking the redis protocol. It keeps strings and lists in up to
16 numbered databases and supports blocking pops. Flags may also be set through a YAML config
file or environment variables named MINIDIS_<flag> (e.g. MINIDIS_QUEUE_SCOPE=database).`, Version),
		SilenceUsage: true,
		PreRunE:      prepareConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			print(banner)
			return StartServer(cmd.Context(), config.Properties)
		},
	}
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file, defaults to $CONFIG or "+config.DefaultConfPath+" when present")
	flags.String("bind", config.Properties.Bind, "address to listen on")
	flags.Int("port", config.Properties.Port, "port to listen on")
	flags.String("transport", config.Properties.Transport, "network transport (tcp, gnet)")
	flags.Bool("multicore", config.Properties.Multicore, "run one gnet event loop per CPU")
	flags.String("log-dir", config.Properties.LogDir, "directory of the log file")
	flags.String("log-level", config.Properties.LogLevel, "log level (debug, info, warn, error)")
	flags.String("metrics-addr", config.Properties.MetricsAddr, "listen address of the prometheus endpoint, empty disables it")
	flags.String("queue-scope", config.Properties.QueueScope, "owner of pending commands (session, database)")
	flags.Int("notify-buffer", config.Properties.NotifyBuffer, "capacity of the executed command notification channel")
}

// AddCommand add command into Cli
func AddCommand(cmdline *cobra.Command) {
	rootCmd.AddCommand(cmdline)
}

// prepareConfig merges flags, environment and config file into config.Properties
func prepareConfig(cmd *cobra.Command, _ []string) error {
	config.LoadEnvFiles()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	filename := configFile
	if filename == "" {
		filename = os.Getenv("CONFIG")
	}
	return config.Setup(v, filename)
}

// StartServer serves until a stop signal arrives or a component fails
func StartServer(ctx context.Context, props *config.ServerProperties) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Setup(&logger.Settings{
		Path:       props.LogDir,
		Name:       "minidis",
		Ext:        "log",
		Level:      props.LogLevel,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     7,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics := telemetry.Global()
	notifier := telemetry.NewNotifier(props.NotifyBuffer, metrics)
	defer notifier.Close()
	db := database.NewStandaloneServer(
		database.WithQueueScope(props.QueueScope),
		database.WithMetrics(metrics),
	)
	handler := RedisServer.MakeHandler(db, notifier, metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	if props.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, props.MetricsAddr)
		})
	}
	g.Go(func() error {
		return serve(gctx, props, handler)
	})
	err := g.Wait()
	if err != nil {
		logger.Error(err)
	}
	logger.Info("server stopped")
	return err
}

// serve runs the configured transport until ctx is done
func serve(ctx context.Context, props *config.ServerProperties, handler *RedisServer.Handler) error {
	var err error
	switch props.Transport {
	case config.TransportGnet:
		var server *gnet.GnetServer
		server, err = gnet.NewGnetServer(handler, props.Multicore)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("bind: %s, start gnet engine...", props.Addr()))
		err = server.Serve(ctx, props.Addr())
	default:
		listener, lerr := tcp.Listen(&tcp.Config{Address: props.Addr()})
		if lerr != nil {
			return lerr
		}
		err = tcp.ListenAndServe(listener, handler, ctx.Done())
	}
	if err == nil && ctx.Err() == nil {
		// the transport stopped on its own, stop the other components too
		err = errors.New("server stopped unexpectedly")
	}
	return err
}

// serveMetrics exposes prometheus metrics on /metrics until ctx is done
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info(fmt.Sprintf("metrics endpoint listening on %s/metrics", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %v", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
