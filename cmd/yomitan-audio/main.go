// main package for the yomitan-audio service
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/book-expert/yomitan-audio/internal/audio"
	"github.com/book-expert/yomitan-audio/internal/auth"
	"github.com/book-expert/yomitan-audio/internal/config"
	"github.com/book-expert/yomitan-audio/internal/core"
	"github.com/book-expert/yomitan-audio/internal/dataset"
	"github.com/book-expert/yomitan-audio/internal/httpapi"
	"github.com/book-expert/yomitan-audio/internal/objectstore"
	"github.com/book-expert/yomitan-audio/internal/pitch"
	"github.com/book-expert/yomitan-audio/internal/reading"
	"github.com/book-expert/yomitan-audio/internal/service"
	"github.com/book-expert/yomitan-audio/internal/tts"
	"github.com/book-expert/yomitan-audio/internal/ttscache"
	"github.com/book-expert/yomitan-audio/internal/worker"
)

const (
	bootstrapLogFile = "yomitan-audio-bootstrap.log"
	serviceLogFile   = "yomitan-audio.log"

	flagConfigDesc = "Path to a TOML config file (defaults to the central configurator)"

	drainTimeout = 30 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func loadConfig(path string, log *logger.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	return config.Load(log)
}

// closer is anything the service releases on shutdown.
type closer func() error

type components struct {
	server       *httpapi.Server
	worker       *worker.NatsWorker
	orchestrator *ttscache.Orchestrator
	closers      []closer
}

// drain lets detached cache writes finish while the store is still open.
func (c *components) drain(log *logger.Logger) {
	if c.orchestrator == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	err := c.orchestrator.Drain(ctx)
	if err != nil {
		log.Warn("tts_cache_drain_incomplete: %v", err)
	}
}

func (c *components) close(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		err := c.closers[i]()
		if err != nil {
			log.Warn("shutdown_close_failed: %v", err)
		}
	}
}

func newSynthesizer(ctx context.Context, cfg *config.Config, log *logger.Logger) (core.Synthesizer, closer, error) {
	switch cfg.TTS.Backend {
	case config.BackendGoogle:
		synth, err := tts.NewGoogleSynthesizer(ctx, cfg.TTS.CredentialsFile, cfg.TTS.Voice, cfg.TTS.Language, log)
		if err != nil {
			return nil, nil, err
		}

		return synth, synth.Close, nil
	default:
		client := tts.NewHTTPClient(cfg.TTS.HTTPURL, cfg.HTTPTimeout(), cfg.TTS.Voice, cfg.TTS.Language)

		return client, nil, nil
	}
}

func build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*components, error) {
	comps := &components{}

	db, err := dataset.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	comps.closers = append(comps.closers, db.Close)

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		comps.close(log)

		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	comps.closers = append(comps.closers, func() error {
		natsConnection.Close()

		return nil
	})

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		comps.close(log)

		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.ObjectStoreBucket)
	if err != nil {
		comps.close(log)

		return nil, err
	}

	svc, orchestrator, err := buildService(ctx, cfg, db, store, natsConnection, log, comps)
	if err != nil {
		comps.close(log)

		return nil, err
	}

	comps.orchestrator = orchestrator

	verifier := auth.NewVerifier(cfg.Auth.Enabled, cfg.Auth.APIKeys)
	comps.server = httpapi.New(svc, verifier, log, cfg.Server.PublicBaseURL)

	if orchestrator != nil && cfg.NATS.PrewarmSubject != "" {
		comps.worker = worker.NewNatsWorker(natsConnection, cfg.NATS.PrewarmSubject, orchestrator, log)
	}

	return comps, nil
}

func buildService(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	store core.ObjectStore,
	natsConnection *nats.Conn,
	log *logger.Logger,
	comps *components,
) (*service.Service, *ttscache.Orchestrator, error) {
	datasetStore := dataset.NewStore(db)
	aggregator := audio.NewAggregator(datasetStore, log)

	var resolverOpts []pitch.Option

	if cfg.TTS.InferReading {
		inferer, err := reading.NewInferer()
		if err != nil {
			return nil, nil, err
		}

		resolverOpts = append(resolverOpts, pitch.WithReadingInferer(inferer))
	}

	resolver := pitch.NewResolver(datasetStore, log, resolverOpts...)

	var orchestrator *ttscache.Orchestrator

	if cfg.TTS.Enabled {
		synth, release, err := newSynthesizer(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}

		if release != nil {
			comps.closers = append(comps.closers, release)
		}

		var opts []ttscache.Option
		if cfg.NATS.AudioCreatedSubject != "" {
			opts = append(opts, ttscache.WithNotifier(worker.NewNatsNotifier(natsConnection, cfg.NATS.AudioCreatedSubject)))
		}

		orchestrator = ttscache.New(store, synth, cfg.InputBuilder(), log, opts...)
	}

	return service.New(aggregator, resolver, orchestrator, store, cfg.Switches(), log), orchestrator, nil
}

func serve(ctx context.Context, cfg *config.Config, comps *components) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return comps.server.ListenAndServe(groupCtx, cfg.Server.ListenAddr, cfg.ReadHeaderTimeout())
	})

	if comps.worker != nil {
		group.Go(func() error {
			return comps.worker.Run(groupCtx)
		})
	}

	comps.server.SetReady(true)

	return group.Wait()
}

func run() error {
	configPath := flag.String("config", "", flagConfigDesc)
	flag.Parse()

	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	cfg, err := loadConfig(*configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := build(ctx, cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to initialize service: %v", err)

		return err
	}

	defer comps.close(finalLog)

	finalLog.System("yomitan-audio initialized (tts=%t auth=%t)", cfg.TTS.Enabled, cfg.Auth.Enabled)

	err = serve(ctx, cfg, comps)

	comps.drain(finalLog)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
