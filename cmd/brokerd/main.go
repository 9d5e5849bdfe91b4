// brokerd runs the notification broker: the websocket endpoint mobile
// clients subscribe through, the channel authorization endpoint, and the
// backend-facing publish API.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hathynn/warehouse-mobile-sub001/internal/broker"
	"github.com/hathynn/warehouse-mobile-sub001/internal/config"
	"github.com/hathynn/warehouse-mobile-sub001/internal/database"
	"github.com/hathynn/warehouse-mobile-sub001/internal/grant"
	"github.com/hathynn/warehouse-mobile-sub001/internal/server"
	"github.com/hathynn/warehouse-mobile-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logg := logger.Setup(cfg.Log.Level)
	logg.Info("starting notification broker")

	// Redis is optional; without it the hub delivers single-instance.
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis, logg)
		if err != nil {
			logg.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		rdb = redisClient.GetClient()
	}

	verify := func(auth, socketID, channelName string) error {
		return grant.Verify(cfg.JWT.Secret, auth, socketID, channelName)
	}
	hub := broker.NewHub(verify, rdb, logg)
	go hub.Run()

	srv := server.New(hub, cfg.JWT.Secret, cfg.Server.AllowedOrigins, logg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Stop()
	if err := httpServer.Shutdown(ctx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}

	logg.Info("server stopped")
}
