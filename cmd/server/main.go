package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	echoapi "github.com/halcyon-auth/halcyon/api/echo"
	"github.com/halcyon-auth/halcyon/cache"
	redisstore "github.com/halcyon-auth/halcyon/cache/redis"
	"github.com/halcyon-auth/halcyon/config"
	"github.com/halcyon-auth/halcyon/domain"
	"github.com/halcyon-auth/halcyon/events"
	"github.com/halcyon-auth/halcyon/mongodb"
	"github.com/halcyon-auth/halcyon/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := db.Client().Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	// Repositories
	clientRepo := mongodb.NewClientRepository(db)
	scopeRepo := mongodb.NewScopeRepository(db)
	ownerRepo := mongodb.NewResourceOwnerRepository(db)
	resourceSetRepo := mongodb.NewResourceSetRepository(db)
	policyRepo := mongodb.NewPolicyRepository(db)
	consentRepo := mongodb.NewConsentRepository(db)
	keyRepo := mongodb.NewKeyRepository(db)

	tokenStore := newTokenStore(cfg, db)
	ticketStore := cache.NewMemoryTicketStore()
	authCodeStore := cache.NewMemoryAuthorizationCodeStore()

	publisher := events.LogPublisher{}

	// Services
	keySet, err := services.NewKeySetService(tokenStore, keyRepo, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize key set")
	}
	go keySet.StartRotation(ctx, time.Duration(cfg.KeyRotationHour)*time.Hour)

	signer := services.NewTokenSigner(keySet)
	validator := services.NewGrantValidator(clientRepo, ownerRepo, authCodeStore, tokenStore, ticketStore, signer)
	policy := services.NewPolicyService(policyRepo, consentRepo, nil, publisher)

	tokens := services.NewTokenService(validator, scopeRepo, tokenStore, signer, policy, publisher, services.TokenServiceConfig{
		Issuer:          cfg.Issuer,
		AccessTokenTTL:  time.Duration(cfg.AccessTokenTTLMin) * time.Minute,
		RefreshTokenTTL: time.Duration(cfg.RefreshTokenTTLHour) * time.Hour,
	})
	authorize := services.NewAuthorizeService(
		services.NewFlowResolver(), clientRepo, authCodeStore, tokens,
		time.Duration(cfg.AuthCodeTTLMin)*time.Minute)
	permissions := services.NewPermissionService(resourceSetRepo, ticketStore, signer, publisher,
		time.Duration(cfg.TicketLifetimeSec)*time.Second)
	discovery := services.NewDiscoveryService(cfg.Issuer, scopeRepo)
	confirmations := services.NewConfirmationCodeService(
		cache.NewMemoryConfirmationCodeStore(), logSMSSender{},
		cfg.ConfirmationCodeLen, time.Duration(cfg.ConfirmationCodeTTL)*time.Second)

	// HTTP boundary
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	api := echoapi.NewOAuth2API(tokens, authorize, permissions, discovery, keySet, confirmations, ownerRepo)
	api.RegisterRoutes(e)

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("issuer", cfg.Issuer).Msg("starting server")
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogging(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// logSMSSender stands in for an SMS gateway. Codes are written to the log;
// deployments plug in a real sender here.
type logSMSSender struct{}

func (logSMSSender) Send(_ context.Context, phoneNumber, message string) error {
	log.Info().Str("phone_number", phoneNumber).Str("message", message).Msg("sms dispatch")
	return nil
}

// newTokenStore selects the token store backend from TOKEN_STORE: mongo,
// redis, or the in-memory default. A configured Redis address also selects
// Redis when no backend is named.
func newTokenStore(cfg *config.ServerConfig, db *mongo.Database) domain.TokenStore {
	backend := cfg.TokenStore
	if backend == "" || backend == "memory" {
		if cfg.RedisAddr != "" {
			backend = "redis"
		}
	}

	switch backend {
	case "mongo":
		log.Info().Str("db", cfg.MongoDBName).Msg("using mongo token store")
		return mongodb.NewTokenRepository(db)
	case "redis":
		if cfg.RedisAddr == "" {
			log.Fatal().Msg("TOKEN_STORE is redis but REDIS_ADDR is not set")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis token store")
		return redisstore.NewTokenStore(client, "halcyon")
	default:
		return cache.NewMemoryTokenStore()
	}
}
