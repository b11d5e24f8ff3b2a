// Package cli implements passctl, the provisioning tool that creates and
// updates passes out of band from the device web service.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"passbook/internal/passes/events"
	"passbook/internal/passes/service"
	"passbook/internal/passes/store"
	"passbook/internal/passes/store/pass"
	"passbook/internal/platform/config"
	"passbook/internal/platform/database"
	"passbook/internal/platform/kafka/producer"
	"passbook/internal/platform/logger"
	"passbook/internal/platform/redis"
)

const closeTimeout = 10 * time.Second

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL  string
	SQLitePath   string
	RedisURL     string
	CacheTTL     time.Duration
	KafkaBrokers string
	KafkaTopic   string
	Format       string // "json" | "text"
	Verbose      bool

	// publisher replaces the Kafka publisher when set.
	publisher service.Publisher
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs passctl with args and returns the process exit code. Errors
// are reported through the formatter selected by --format.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return executeConfigured(ctx, args, stdout, stderr, nil)
}

func executeConfigured(ctx context.Context, args []string, stdout, stderr io.Writer, configure func(*RootOptions)) int {
	cmd, opts := newRootCommand()
	if configure != nil {
		configure(opts)
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	if !slices.Contains(ValidFormats, opts.Format) {
		opts.Format = "text"
	}
	_ = opts.formatter(cmd).Error(err)
	return GetExitCode(err)
}

// NewRootCommand creates the root command for passctl. Database, Redis and
// Kafka flags default to the same environment variables the server reads, so
// updates made here reach the server's pass cache and event stream.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

func newRootCommand() (*cobra.Command, *RootOptions) {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "passctl",
		Short: "Provision passes for the passbook web service",
		Long: `passctl creates, updates and inspects passes in the passbook store.

Devices register against passes over HTTP; the passes themselves are
provisioned here. Payloads are read from JSON or YAML files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (empty selects SQLite)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", envOr("SQLITE_PATH", "dev.db"), "SQLite database file")
	cmd.PersistentFlags().StringVar(&opts.RedisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL of the server's pass cache")
	cmd.PersistentFlags().DurationVar(&opts.CacheTTL, "cache-ttl", envDuration("PASS_CACHE_TTL", time.Minute), "pass cache entry TTL")
	cmd.PersistentFlags().StringVar(&opts.KafkaBrokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Kafka brokers for pass.updated events")
	cmd.PersistentFlags().StringVar(&opts.KafkaTopic, "kafka-topic", envOr("KAFKA_TOPIC", "passbook.registrations"), "Kafka event topic")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPassCommand(opts))

	return cmd, opts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) databaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:          o.DatabaseURL,
		SQLitePath:   o.SQLitePath,
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}
}

// openService opens the configured database, applying migrations, and
// builds a service over it. With a Redis URL the pass store writes updates
// through the server's cache; with Kafka brokers pass updates are published.
// The returned close func flushes the producer and releases connections.
func (o *RootOptions) openService(ctx context.Context, errOut io.Writer) (*service.Service, func(), error) {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(errOut, level)

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := database.Open(ctx, o.databaseConfig())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open database", err)
	}
	closers = append(closers, func() { _ = pool.Close() })

	stores, err := store.New(pool)
	if err != nil {
		closeAll()
		return nil, nil, WrapExitError(ExitCommandError, "open stores", err)
	}

	redisClient, err := redis.New(ctx, config.RedisConfig{
		URL:          o.RedisURL,
		PoolSize:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, nil)
	if err != nil {
		closeAll()
		return nil, nil, WrapExitError(ExitCommandError, "connect redis", err)
	}
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
		stores.Passes = pass.NewCached(stores.Passes, redisClient, o.CacheTTL, pass.WithCacheLogger(log))
	}

	opts := []service.Option{service.WithLogger(log)}
	publisher, closePublisher, err := o.openPublisher(ctx, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if publisher != nil {
		closers = append(closers, closePublisher)
		opts = append(opts, service.WithPublisher(publisher))
	}

	svc := service.New(stores.Passes, stores.Registrations, opts...)
	return svc, closeAll, nil
}

func (o *RootOptions) openPublisher(ctx context.Context, log *slog.Logger) (service.Publisher, func(), error) {
	if o.publisher != nil {
		return o.publisher, func() {}, nil
	}
	if o.KafkaBrokers == "" {
		return nil, nil, nil
	}

	prod, err := producer.New(producer.Config{
		Brokers:         o.KafkaBrokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: closeTimeout,
	}, log)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "create kafka producer", err)
	}
	if err := prod.EnsureTopic(ctx, o.KafkaTopic, 3, 1); err != nil {
		log.WarnContext(ctx, "kafka topic bootstrap failed", "topic", o.KafkaTopic, "error", err)
	}
	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = prod.Close(closeCtx)
	}
	return events.NewKafkaPublisher(prod, o.KafkaTopic), closeFn, nil
}
