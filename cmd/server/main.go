package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/smart_inventory/internal/config"
	"github.com/Skotchmaster/smart_inventory/internal/handlers"
	"github.com/Skotchmaster/smart_inventory/internal/jwtmiddleware"
	"github.com/Skotchmaster/smart_inventory/internal/logging"
	loggingmw "github.com/Skotchmaster/smart_inventory/internal/middleware/logging"
	"github.com/Skotchmaster/smart_inventory/internal/mykafka"
	"github.com/Skotchmaster/smart_inventory/internal/objectstore"
	httpserver "github.com/Skotchmaster/smart_inventory/internal/transport/http"
	"github.com/Skotchmaster/smart_inventory/internal/validation"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := objectstore.NewClient(initCtx, configuration)
	cancel()
	if err != nil {
		log.Fatalf("object store init error: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer(
			[]string{configuration.KAFKA_ADDRESS},
			[]string{"user_events", "item_events"},
		)
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	e.Validator = validation.New()

	deps := httpserver.Deps{
		AuthHandler: &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: producerOrNil(prod)},
		InventoryHandler: &handlers.InventoryHandler{DB: db, Store: store, Producer: producerOrNil(prod)},
		JWT: jwtmiddleware.New(jwtSecret),
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.SERVER_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.SERVER_PORT)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db() error", "error", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// producerOrNil keeps a typed-nil *mykafka.Producer from ending up in the
// EventPublisher interface.
func producerOrNil(p *mykafka.Producer) handlers.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
