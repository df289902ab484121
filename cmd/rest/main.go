package main

import (
	"context"
	"log"

	"ai-testgen-be/internal/bootstrap"
	"ai-testgen-be/internal/config"
	"ai-testgen-be/internal/pkg/logger"
	"ai-testgen-be/internal/server"
	"ai-testgen-be/internal/tracer"
	"ai-testgen-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer appLogger.Sync()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	// Note: In a larger app, we might use an errgroup or supervisor here
	go func() {
		appLogger.Info("Main", "Starting consumer service", nil)
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			appLogger.Error("Main", "Consumer service stopped", map[string]interface{}{"error": err})
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
