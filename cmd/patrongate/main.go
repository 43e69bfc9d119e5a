package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Seann-Moser/patrongate"
	"github.com/Seann-Moser/patrongate/api"
	"github.com/Seann-Moser/patrongate/observability"
	"github.com/Seann-Moser/patrongate/patreon"
	"github.com/Seann-Moser/patrongate/store"
	"github.com/Seann-Moser/patrongate/webhook"
)

func main() {
	_ = godotenv.Load()

	logger := observability.NewLogger()

	clientID := mustEnv(logger, "PATREON_CLIENT_ID")
	clientSecret := mustEnv(logger, "PATREON_CLIENT_SECRET")
	redirectURL := mustEnv(logger, "REDIRECT_URL")
	sessionSecret := mustEnv(logger, "SESSION_SECRET")
	mongoURI := mustEnv(logger, "MONGODB_URI")

	webhookSecret := os.Getenv("PATREON_WEBHOOK_SECRET")
	if webhookSecret == "" {
		logger.Warn("webhook_secret_missing", map[string]any{
			"detail": "PATREON_WEBHOOK_SECRET not set, webhook signatures will not be validated",
		})
	}

	tierIDs := splitTierIDs(os.Getenv("MY_TIER_IDS"))
	if len(tierIDs) == 0 {
		logger.Warn("tier_allowlist_empty", map[string]any{
			"detail": "MY_TIER_IDS not set, no memberships can be verified",
		})
	}
	minAmountCents := envIntOrDefault("MIN_TIER_AMOUNT_CENTS", 300)
	campaignID := os.Getenv("PATREON_CAMPAIGN_ID")
	port := envOrDefault("PORT", "3000")

	if err := observability.InitSentry(os.Getenv("SENTRY_DSN"), envOrDefault("APP_ENV", "development")); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err.Error()})
	}
	defer observability.FlushSentry()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Error("mongo_connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo_ping_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	st := store.NewMongoStore(mongoClient.Database(envOrDefault("MONGODB_DATABASE", "patrongate")))

	patreonClient := patreon.New(patreon.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
	})

	manager := patrongate.NewManager(st, patreonClient, []byte(sessionSecret), logger)
	server := api.NewServer(patreonClient, st, []byte(sessionSecret), tierIDs, minAmountCents, campaignID, logger)

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		server.SetupRedis(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}))
	}

	webhookHandler := webhook.NewHandler(st, webhookSecret, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /oauth/login", server.LoginHandler)
	mux.HandleFunc("GET /oauth/redirect", server.RedirectHandler)
	mux.HandleFunc("POST /oauth/logout", server.LogoutHandler)
	mux.Handle("GET /api/verify", manager.Middleware(http.HandlerFunc(server.VerifyHandler)))
	mux.Handle("GET /api/user/tier", manager.Middleware(http.HandlerFunc(server.TierHandler)))
	mux.Handle("GET /api/admin/tiers", manager.Middleware(http.HandlerFunc(server.AdminTiersHandler)))
	mux.HandleFunc("GET /api/public/campaign-tiers", server.CampaignTiersHandler)
	mux.Handle("POST /webhooks/patreon", webhookHandler)
	mux.HandleFunc("GET /health", healthHandler(mongoClient))

	handler := observability.RecoverMiddleware(logger, observability.RequestLoggingMiddleware(logger, mux))

	addr := fmt.Sprintf(":%s", port)
	logger.Info("server_start", map[string]any{"addr": addr})
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func healthHandler(client *mongo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "time": time.Now().UTC().Format(time.RFC3339)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func splitTierIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mustEnv(logger *observability.Logger, name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		logger.Error("missing_required_env", map[string]any{"name": name})
		os.Exit(1)
	}
	return value
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
