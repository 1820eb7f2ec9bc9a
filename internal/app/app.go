// Package app wires configuration into the running services. Both binaries
// build on it so the CLI acts on exactly what the API serves.
package app

import (
	"context"
	"fmt"

	"pgstay/internal/cache"
	"pgstay/internal/config"
	"pgstay/internal/database"
	"pgstay/internal/events"
	"pgstay/internal/modules/agreement"
	"pgstay/internal/modules/booking"
	"pgstay/internal/modules/identity"
	"pgstay/internal/modules/notification"
	"pgstay/internal/modules/payment"
	"pgstay/internal/modules/settlement"
	"pgstay/internal/modules/tenancy"
	"pgstay/internal/pkg/jwt"
	"pgstay/internal/pkg/logger"
	"pgstay/internal/pkg/sealbox"
	"pgstay/internal/realtime"
	"pgstay/internal/repository"
	"pgstay/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tokenIssuer = "pgstay"

type App struct {
	Config *config.Config
	Log    *logrus.Logger
	DB     *gorm.DB
	Store  *repository.Store
	Bus    *events.Bus
	Hub    *realtime.Hub
	Tokens *jwt.Service

	Identity      *identity.Service
	Bookings      *booking.Service
	Tenancies     *tenancy.Service
	Agreements    *agreement.Service
	Payments      *payment.Service
	Settlements   *settlement.Service
	Notifications *notification.Service

	cache cache.Cache
	nats  *events.NATSBridge
}

// New connects the database and builds every service. Redis and NATS are
// optional; without them verification results are not cached and events
// stay in-process.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    log,
		DB:     db,
		Store:  repository.NewStore(db),
		Bus:    events.NewBus(logger.Component(log, "events")),
		Hub:    realtime.NewHub(),
		Tokens: jwt.New(cfg.JWTSecret, cfg.JWTTTL, tokenIssuer),
		cache:  cache.NewNoOpCache(),
	}

	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, logger.Component(log, "cache"))
		if err != nil {
			log.WithError(err).Warn("redis unavailable, verification cache disabled")
		} else {
			a.cache = rc
		}
	}

	if cfg.NATSURL != "" {
		bridge, err := events.ConnectNATS(cfg.NATSURL, logger.Component(log, "nats"))
		if err != nil {
			log.WithError(err).Warn("nats unavailable, events stay in-process")
		} else {
			a.nats = bridge
			a.Bus.SetForwarder(bridge)
		}
	}

	docs, err := documentStore(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	verifier, err := tokenVerifier(ctx, cfg, a.Tokens)
	if err != nil {
		a.Close()
		return nil, err
	}

	sealer := agreement.NewSealer(docs, agreement.NewPDFRenderer(), agreement.SealerConfig{
		PublicBaseURL:  cfg.PublicBaseURL,
		DurationMonths: cfg.AgreementDurationMonths,
		Currency:       cfg.Currency,
	})

	a.Identity = identity.NewService(a.Store, verifier, a.Bus, logger.Component(log, "identity"))
	a.Tenancies = tenancy.NewService(a.Store, sealer, a.Bus, logger.Component(log, "tenancy"))
	a.Bookings = booking.NewService(a.Store, a.Tenancies, a.Bus, logger.Component(log, "booking"))
	a.Agreements = agreement.NewService(a.Store, sealer, docs, a.cache, a.Bus, cfg.VerifyCacheTTL, logger.Component(log, "agreement"))
	a.Payments = payment.NewService(a.Store,
		payment.NewCashfreeClient(cfg.Cashfree, logger.Component(log, "gateway")),
		a.Bus,
		payment.Config{
			Currency:      cfg.Currency,
			ReturnURL:     cfg.Cashfree.ReturnURL,
			WebhookSecret: cfg.Cashfree.WebhookSecret,
			OrderTTL:      cfg.PaymentOrderTTL,
		},
		logger.Component(log, "payment"))
	a.Settlements = settlement.NewService(a.Store, sealbox.New(cfg.PayoutEncryptionKey), a.Bus, logger.Component(log, "settlement"))
	a.Notifications = notification.NewService(a.Store, a.Hub, logger.Component(log, "notification"))

	a.Identity.Subscribe(a.Bus)
	a.Notifications.Subscribe(a.Bus)

	if a.nats != nil {
		if err := a.nats.Listen(a.Bus, events.PropertyCreated); err != nil {
			log.WithError(err).Warn("nats subscribe failed")
		}
	}
	return a, nil
}

func (a *App) Close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.DB != nil {
		_ = database.Close(a.DB)
	}
}

func documentStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.DocumentStore, error) {
	if cfg.DocumentStore == "s3" {
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			Prefix:          "agreements",
		}, logger.Component(log, "storage"))
		if err != nil {
			return nil, fmt.Errorf("init s3 document store: %w", err)
		}
		return s, nil
	}
	s, err := storage.NewLocalStore(cfg.DocumentDir)
	if err != nil {
		return nil, fmt.Errorf("init local document store: %w", err)
	}
	return s, nil
}

func tokenVerifier(ctx context.Context, cfg *config.Config, tokens *jwt.Service) (identity.TokenVerifier, error) {
	if cfg.IdentityProvider == "firebase" {
		v, err := identity.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return identity.NewJWTVerifier(tokens), nil
}
