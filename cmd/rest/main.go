package main

import (
	"context"
	"log"

	"ai-orchestrator-be/internal/bootstrap"
	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/server"
	"ai-orchestrator-be/internal/tracer"
	"ai-orchestrator-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Event Relay Service...")
		if err := container.EventRelayService.Relay(context.Background()); err != nil {
			log.Printf("Background Relay Error: %v", err)
		}
	}()

	// 5. Initialize and Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
