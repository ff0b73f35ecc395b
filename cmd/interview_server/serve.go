package main

import (
	"context"
	"fmt"

	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/db/memdb"
	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/notify"
	"github.com/jonathan/interview-manager/internal/readstate"
	"github.com/jonathan/interview-manager/internal/server"
	"github.com/jonathan/interview-manager/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	servePort   int
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the admin, candidate and auth endpoints.

With --memory the server keeps everything in process and needs no Postgres; data is
lost on exit.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Use the in-memory store instead of Postgres")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.L()

	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}

	var store server.Store
	if serveMemory {
		log.Warn("using the in-memory store; data is lost on exit")
		store = memdb.New()
	} else {
		database, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()
		store = database
	}

	objects, err := storage.New(storage.Config{
		Endpoint:      cfg.OSS.Endpoint,
		AccessKey:     cfg.OSS.AccessKey,
		SecretKey:     cfg.OSS.SecretKey,
		SecurityToken: cfg.OSS.SecurityToken,
		Bucket:        cfg.OSS.Bucket,
		Prefix:        cfg.OSS.Prefix,
		PublicBase:    cfg.OSS.PublicBase,
	})
	if err != nil {
		return fmt.Errorf("failed to set up object storage: %w", err)
	}
	if _, ok := objects.(*storage.MemoryStore); ok {
		log.Warn("object storage not configured, video uploads are kept in memory")
	}

	bus := newBus()
	if _, ok := bus.(*events.Dummy); ok {
		log.Warn("RABBITMQ_URL not set, video processing jobs are not published")
	}

	readState, closeReadState, err := newReadState(ctx)
	if err != nil {
		return err
	}
	defer closeReadState()

	sender := notify.NewSender(cfg.SMTP, cfg.BaseURL)
	if _, ok := sender.(*notify.SimulatedSender); ok {
		log.Warn("SMTP not configured, emails are simulated")
	}

	srv, err := server.New(server.Options{
		Config:    cfg,
		Store:     store,
		Objects:   objects,
		Events:    bus,
		ReadState: readState,
		Sender:    sender,
		JWT:       jwtConfig,
		Password:  passwordConfig,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

func newBus() events.Bus {
	return events.New(events.RabbitConfig{
		URL:         cfg.Rabbit.URL,
		JobQueue:    cfg.Rabbit.JobQueue,
		ResultQueue: cfg.Rabbit.ResultQueue,
		MaxConsumer: cfg.Rabbit.Prefetch,
	})
}

// newReadState uses Redis when REDIS_URL is set and falls back to process memory
func newReadState(ctx context.Context) (readstate.Store, func(), error) {
	if cfg.Redis.URL == "" {
		return readstate.NewMemoryStore(cfg.ReadState.Cap), func() {}, nil
	}
	client, err := readstate.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	logging.L().Info("notification read state in redis", zap.String("namespace", cfg.Redis.Namespace))
	return readstate.NewRedisStore(client, cfg.Redis.Namespace, cfg.ReadState.Cap), func() { _ = client.Close() }, nil
}
