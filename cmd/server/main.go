package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/funnel-monitor/internal/api"
	"github.com/ignite/funnel-monitor/internal/auth"
	"github.com/ignite/funnel-monitor/internal/cache"
	"github.com/ignite/funnel-monitor/internal/config"
	"github.com/ignite/funnel-monitor/internal/funnel"
	"github.com/ignite/funnel-monitor/internal/pkg/distlock"
	"github.com/ignite/funnel-monitor/internal/pkg/logger"
	"github.com/ignite/funnel-monitor/internal/repository/postgres"
	"github.com/ignite/funnel-monitor/internal/service/dashboard"
	"github.com/ignite/funnel-monitor/internal/service/payments"
	"github.com/ignite/funnel-monitor/internal/service/subscriptions"
	"github.com/ignite/funnel-monitor/internal/storage"
	"github.com/ignite/funnel-monitor/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRedis accepts a redis:// URL or a bare host:port. It returns nil when
// Redis is not configured or not reachable.
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		log.Println("Redis not configured (REDIS_ADDR not set); using PG advisory locks and in-process caching")
		return nil
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed (%s): %v; falling back to PG advisory locks", cfg.Addr, err)
		client.Close()
		return nil
	}
	log.Printf("Redis connected: %s (shared view cache, sessions and distributed locking enabled)", cfg.Addr)
	return client
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Funnel Monitor Server (cmd/server/main.go)               ║")
	log.Println("║  Payments, subscriptions and paid-not-signed funnel API   ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Database.URL == "" {
		log.Fatal("Database not configured (database.url or DATABASE_URL is required)")
	}
	log.Printf("DB URL host portion: ...@%s/...", extractHost(cfg.Database.URL))
	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("PostgreSQL connected")

	redisClient := openRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	loc := cfg.Funnel.Location()
	records := postgres.NewRecords(db)

	paymentsSvc := payments.NewService(records.PaymentRepo, payments.Settings{
		Location:        loc,
		DefaultPageSize: cfg.Funnel.DefaultPageSize,
		MaxPageSize:     cfg.Funnel.MaxPageSize,
	})
	subscriptionsSvc := subscriptions.NewService(records.SubscriptionRepo, subscriptions.Settings{
		Location:         loc,
		ExpiringSoonDays: cfg.Funnel.ExpiringSoonDays,
		DefaultPageSize:  cfg.Funnel.DefaultPageSize,
		MaxPageSize:      cfg.Funnel.MaxPageSize,
	})

	var viewCache dashboard.ViewCache
	if redisClient != nil {
		viewCache = cache.NewViewCache(redisClient, cfg.Cache.KeyPrefix, cfg.Cache.TTL())
	}

	var archiver dashboard.Archiver
	var history api.HistoryStore
	store, err := storage.New(ctx, cfg.Archive)
	if err != nil {
		log.Printf("Warning: Failed to initialize report archive (%s): %v; KPI history disabled", cfg.Archive.Type, err)
	} else {
		archiver = store
		history = store
		log.Printf("Report archive initialized (type=%s)", store.Type())
	}

	dashboardSvc := dashboard.NewService(records, viewCache, archiver, dashboard.Settings{
		Funnel: funnel.Config{
			ProductMatch:     cfg.Funnel.ProductMatch,
			ExcludeProducts:  cfg.Funnel.ExcludeProducts,
			RecentWindow:     cfg.Funnel.RecentWindow(),
			ExpiringSoonDays: cfg.Funnel.ExpiringSoonDays,
		},
		MaxAge: cfg.Cache.TTL(),
	})

	var refresher *worker.RefreshWorker
	var runningChecker api.RunningChecker
	if cfg.Refresh.Enabled {
		lock := distlock.NewLock(redisClient, db, "funnel-refresh", cfg.Refresh.LockTTL())
		refresher = worker.NewRefreshWorker(dashboardSvc, lock, cfg.Refresh.Interval())
		if err := refresher.Start(); err != nil {
			log.Printf("Warning: Failed to start Refresh Worker: %v", err)
		} else {
			runningChecker = refresher
			log.Printf("Refresh Worker started (every %s, lock ttl %s)", cfg.Refresh.Interval(), cfg.Refresh.LockTTL())
		}
	} else {
		log.Println("Refresh Worker disabled; views are computed on demand")
	}

	var authManager *auth.AuthManager
	if cfg.Auth.Enabled && cfg.Auth.GoogleClientID != "" {
		var sessions auth.SessionStore
		if cfg.Auth.SessionStore == "redis" && redisClient != nil {
			sessions = auth.NewRedisStore(redisClient, cfg.Cache.KeyPrefix)
			log.Println("Sessions stored in Redis")
		} else {
			mem := auth.NewMemoryStore()
			mem.StartSweeper(ctx, 10*time.Minute)
			sessions = mem
			log.Println("Sessions stored in memory")
		}

		authManager = auth.NewAuthManager(cfg.Auth, cfg.Server.BaseURL, sessions)

		log.Println("Validating Google OAuth credentials...")
		if err := authManager.ValidateCredentials(ctx); err != nil {
			log.Fatalf("Google OAuth credentials invalid: %v", err)
		}
		log.Println("Google OAuth credentials validated successfully")
		log.Printf("Google OAuth enabled for domain: %s (callback: %s/auth/callback)", cfg.Auth.AllowedDomain, cfg.Server.BaseURL)
	} else {
		log.Println("Authentication disabled")
	}

	handlers := api.NewHandlers(paymentsSvc, subscriptionsSvc, dashboardSvc, history, api.Options{
		Location:        loc,
		DefaultPageSize: cfg.Funnel.DefaultPageSize,
		MaxPageSize:     cfg.Funnel.MaxPageSize,
	})
	health := api.NewHealthChecker(db, redisClient, runningChecker)
	server := api.NewServer(cfg.Server, handlers, health, authManager)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if refresher != nil {
		refresher.Stop()
		stats := refresher.Stats()
		log.Printf("Refresh Worker stopped (runs=%d skipped=%d failures=%d)", stats.Runs, stats.Skipped, stats.Failures)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	cancel()

	log.Println("Server exited")
}
