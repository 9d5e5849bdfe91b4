// notifytail is the reference consumer: it logs in with a session token,
// keeps the realtime client subscribed to its notification channel, and
// prints every normalized notification. Useful for smoke-testing a
// broker and as a wiring example for app consumers.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
	"github.com/hathynn/warehouse-mobile-sub001/internal/config"
	"github.com/hathynn/warehouse-mobile-sub001/internal/notification"
	"github.com/hathynn/warehouse-mobile-sub001/internal/notify"
	"github.com/hathynn/warehouse-mobile-sub001/internal/realtime"
	"github.com/hathynn/warehouse-mobile-sub001/internal/session"
	"github.com/hathynn/warehouse-mobile-sub001/pkg/logger"
)

func main() {
	var (
		accountID = flag.String("account", "", "account id of the session")
		role      = flag.String("role", string(channel.RoleStaff), "warehouse role")
		token     = flag.String("token", "", "bearer session token for the auth endpoint")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}
	logg := logger.Setup(cfg.Log.Level)

	if *accountID == "" {
		logg.Error("missing -account")
		os.Exit(2)
	}

	sessions := session.NewStore()
	sink := notify.NewStore()
	norm := notification.NewNormalizer(notification.NewClassifier(), nil)
	authz := realtime.NewHTTPAuthorizer(cfg.Client.AuthURL, func() string { return *token })

	client := realtime.NewClient(
		realtime.Factory(cfg.Client.BrokerURL, logg),
		authz, sessions, sink, norm, logg,
	)
	client.Start()
	defer client.Close()

	updates, cancel := sink.Subscribe()
	defer cancel()

	sessions.Login(*accountID, channel.Role(*role))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case u := <-updates:
			if u.Event != nil {
				logg.Info("notification",
					"type", u.Event.Type,
					"category", u.Event.Category.String(),
					"entity", u.Event.EntityID(),
					"at", u.Event.Timestamp,
				)
			}
			if u.Status == notify.StatusError {
				logg.Warn("connection degraded", "error", u.ConnectionError)
			}
		case <-quit:
			sessions.BeginLogout()
			sessions.Logout()
			logg.Info("logged out, exiting")
			return
		}
	}
}
