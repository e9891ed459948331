package main

// @title           Sercha Social API
// @version         1.0
// @description     Connect a social account with OAuth 2.0 PKCE and schedule posts for publication.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-social/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey SessionCookie
// @in header
// @name Authorization
// @description Signed session token. Cookie or "Bearer {token}"

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/custodia-labs/sercha-social/docs"
	"github.com/custodia-labs/sercha-social/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-social/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-social/internal/adapters/driven/provider/x"
	postgresqueue "github.com/custodia-labs/sercha-social/internal/adapters/driven/queue/postgres"
	redisadapter "github.com/custodia-labs/sercha-social/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-social/internal/adapters/driven/vault"
	"github.com/custodia-labs/sercha-social/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-social/internal/config"
	"github.com/custodia-labs/sercha-social/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-social/internal/core/services"
	"github.com/custodia-labs/sercha-social/internal/logger"
	"github.com/custodia-labs/sercha-social/internal/worker"
)

var version = "dev"

func main() {
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.RunMode = os.Args[1]
	}
	if cfg.AppVersion == "dev" {
		cfg.AppVersion = version
	}

	log.Printf("sercha-social %s starting in %s mode", cfg.AppVersion, cfg.RunMode)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	appLogger := logger.New(os.Stdout, logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "sercha-social",
		Version:     cfg.AppVersion,
		Environment: environment(cfg),
	})
	slog.SetDefault(appLogger)

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("PostgreSQL connected and migrations applied")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Driven adapters (infrastructure) =====
	secretVault, err := vault.New(cfg.CredentialMasterSecret)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	credentialStore := postgres.NewCredentialStore(db)
	postQueue := postgresqueue.NewQueue(db.DB)

	var sessionStore driven.OAuthSessionStore
	var redisPinger http.Pinger
	if redisClient != nil {
		redisSessions := redisadapter.NewOAuthSessionStore(redisClient)
		sessionStore = redisSessions
		redisPinger = redisSessions
		log.Println("Using Redis for OAuth sessions")
	} else {
		sessionStore = postgres.NewOAuthSessionStore(db)
		log.Println("Using PostgreSQL for OAuth sessions")
	}

	providerClient := x.NewClient(x.Config{
		ClientID:           cfg.Provider.ClientID,
		ClientSecret:       cfg.Provider.ClientSecret,
		AuthURL:            cfg.Provider.AuthURL,
		TokenURL:           cfg.Provider.TokenURL,
		APIURL:             cfg.Provider.APIURL,
		UploadURL:          cfg.Provider.UploadURL,
		Scopes:             cfg.Provider.Scopes,
		MediaUploadEnabled: cfg.MediaUploadEnabled,
		Logger:             appLogger,
	})

	// ===== Core services =====
	tokenService := services.NewTokenService(services.TokenServiceConfig{
		Credentials: credentialStore,
		Vault:       secretVault,
		Client:      providerClient,
		Logger:      appLogger,
	})

	oauthService := services.NewOAuthService(services.OAuthServiceConfig{
		Sessions:    sessionStore,
		Credentials: credentialStore,
		Vault:       secretVault,
		Client:      providerClient,
		RedirectURI: cfg.Provider.RedirectURI,
		Logger:      appLogger,
	})

	postService := services.NewPostService(services.PostServiceConfig{
		Queue:  postQueue,
		Logger: appLogger,
	})

	mediaService := services.NewMediaService(services.MediaServiceConfig{
		Credentials: credentialStore,
		Tokens:      tokenService,
		Client:      providerClient,
		Enabled:     cfg.MediaUploadEnabled,
		Logger:      appLogger,
	})

	queueWorker := worker.NewWorker(worker.WorkerConfig{
		Queue:       postQueue,
		Credentials: credentialStore,
		Tokens:      tokenService,
		Client:      providerClient,
		Sessions:    sessionStore,
		Logger:      appLogger,
		BatchSize:   cfg.Worker.BatchSize,
		Interval:    cfg.Worker.Interval,
	})

	// ===== Run =====
	g, gctx := errgroup.WithContext(ctx)

	if cfg.ServesAPI() {
		server := http.NewServer(http.Config{
			Host:                        "0.0.0.0",
			Port:                        cfg.Port,
			Version:                     cfg.AppVersion,
			PostConnectRedirect:         cfg.PostConnectRedirect,
			WorkerTriggerSecret:         cfg.Worker.TriggerSecret,
			AllowUnauthenticatedTrigger: cfg.Worker.AllowUnauthenticatedTrigger,
			CORSOrigins:                 cfg.CORSOrigins,
		}, http.Dependencies{
			OAuth:      oauthService,
			Posts:      postService,
			Media:      mediaService,
			Runner:     queueWorker,
			AuthSource: authSource(cfg),
			DB:         db,
			Redis:      redisPinger,
			Logger:     appLogger,
		})

		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	if cfg.RunsWorkerLoop() {
		g.Go(func() error {
			if err := queueWorker.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			log.Println("Stopping worker...")
			queueWorker.Stop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Shutdown with error: %v", err)
	}
	log.Println("Shutdown complete")
}

// authSource picks how callers are identified. Config validation guarantees
// header auth only runs in dev mode.
func authSource(cfg config.Config) http.AuthSource {
	if cfg.Auth.Source == config.AuthSourceHeader {
		log.Printf("WARNING: trusting %s header for identity (DEV_MODE)", cfg.Auth.DevUserHeader)
		return http.NewHeaderAuthSource(cfg.Auth.DevUserHeader)
	}
	return http.NewCookieAuthSource(auth.NewSigner(cfg.Auth.SessionSecret), cfg.Auth.CookieName)
}

func environment(cfg config.Config) string {
	if cfg.Auth.DevMode {
		return "development"
	}
	return "production"
}
