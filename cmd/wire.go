package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"evidence-registry/internal/client"
	"evidence-registry/internal/config"
	"evidence-registry/internal/core"
	"evidence-registry/internal/db"
	"evidence-registry/internal/evidence"
	"evidence-registry/internal/ledger"
	"evidence-registry/internal/storage"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// app holds everything built from one configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	anchor   *core.AnchorService
	registry *evidence.Registry
	sim      *evidence.Simulator
	pipeline *evidence.Pipeline
	verifier *evidence.Verifier
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.buildAnchor(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.registry = evidence.NewRegistry()
	a.sim = evidence.NewSimulator(a.registry, a.confirmer(), logger.Named("lifecycle"),
		evidence.WithStagger(cfg.Lifecycle.Stagger.Std()))
	a.closers = append(a.closers, a.sim.Close)
	a.pipeline = evidence.NewPipeline(a.registry, a.sim, logger.Named("ingest"))
	a.verifier = evidence.NewVerifier(a.resolver(), cfg.Verify.Delay.Std(), logger.Named("verify"))
	return a, nil
}

func (a *app) buildAnchor(ctx context.Context) error {
	cfg := a.cfg

	var store core.ObjectStorage
	switch cfg.Storage.Backend {
	case "minio":
		s, err := storage.NewMinioStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL, a.logger)
		if err != nil {
			return err
		}
		store = s
	case "s3":
		s, err := storage.NewS3Storage(ctx, cfg.Storage.Region, cfg.Storage.Endpoint,
			cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket)
		if err != nil {
			return err
		}
		store = s
	default:
		store = storage.NewMemoryStorage(cfg.Storage.Bucket)
	}

	var l core.Ledger
	switch cfg.Ledger.Backend {
	case "fabric":
		fl, err := ledger.NewFabricLedger(ledger.FabricConfig{
			MSPID:        cfg.Ledger.MSPID,
			CryptoPath:   cfg.Ledger.CryptoPath,
			User:         cfg.Ledger.User,
			PeerEndpoint: cfg.Ledger.PeerEndpoint,
			GatewayPeer:  cfg.Ledger.GatewayPeer,
			Channel:      cfg.Ledger.Channel,
			Chaincode:    cfg.Ledger.Chaincode,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, fl.Close)
		l = fl
	default:
		l = ledger.NewMockLedger(cfg.Ledger.MockDelay.Std())
	}

	var database core.Database
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := db.NewPostgresDB(cfg.Database.Host, cfg.Database.User, cfg.Database.Password,
			cfg.Database.DBName, cfg.Database.Port, cfg.Database.SSLMode)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = pg.Close() })
		database = pg
	default:
		database = db.NewMemoryDB()
	}

	opts := []core.Option{core.WithOrganization(cfg.Anchor.Organization)}
	if cfg.Anchor.BatchSize > 0 {
		b := core.NewMerkleBatcher(l, cfg.Anchor.BatchSize, cfg.Anchor.BatchMaxWait.Std(), cfg.Anchor.Organization)
		a.closers = append(a.closers, b.Close)
		opts = append(opts, core.WithBatcher(b))
	}
	a.anchor = core.NewAnchorService(store, l, database, a.logger.Named("anchor"), opts...)
	return nil
}

func (a *app) confirmer() evidence.Confirmer {
	lc := a.cfg.Lifecycle
	switch lc.Mode {
	case "remote":
		return client.New(lc.RemoteURL,
			client.WithMaxRetries(lc.MaxRetries),
			client.WithLogger(a.logger.Named("client")),
			client.WithHTTPClient(&http.Client{Timeout: lc.Timeout.Std()}),
		)
	case "local":
		return a.anchor
	default:
		return evidence.DelayConfirmer{Delay: lc.MockDelay.Std()}
	}
}

func (a *app) resolver() evidence.Resolver {
	vc := a.cfg.Verify
	if vc.Resolver == "random" {
		return evidence.NewRandomResolver(vc.FoundRatio, vc.Organization, uint64(time.Now().UnixNano()))
	}
	return evidence.FirstFound(
		evidence.RegistryResolver{Registry: a.registry, Organization: vc.Organization},
		a.anchor,
	)
}
