package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"sap2d/internal/api"
	"sap2d/internal/config"
	"sap2d/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" SAP2D - 2D sweep-and-prune broadphase service")
	log.Println("================================")

	appConfig := config.Load()

	log.Printf("capacity: %d entities, %d pairs",
		appConfig.Capacity.MaxEntities, appConfig.Capacity.MaxOverlaps)
	log.Printf("tick: %d/s, queue depth %d, drain %d/tick",
		appConfig.Tick.Rate, appConfig.Tick.QueueDepth, appConfig.Tick.DrainPerTick)
	log.Printf("limits: %d ws total, %d ws/ip, %.1f req/s (burst %d)",
		appConfig.Limits.MaxWSConnectionsTotal, appConfig.Limits.MaxWSConnectionsPerIP,
		appConfig.Limits.RateLimitPerSecond, appConfig.Limits.RateLimitBurst)

	svc := service.New(service.Config{
		MaxEntities:  appConfig.Capacity.MaxEntities,
		MaxOverlaps:  appConfig.Capacity.MaxOverlaps,
		TickRate:     appConfig.Tick.Rate,
		QueueDepth:   appConfig.Tick.QueueDepth,
		DrainPerTick: appConfig.Tick.DrainPerTick,
	})

	adminAuth := api.NewAdminAuth(appConfig.Server.AdminToken)
	if adminAuth.Enabled() {
		log.Println("admin auth ENABLED (ADMIN_TOKEN set)")
	} else {
		log.Println("admin auth disabled (set ADMIN_TOKEN to enable)")
	}

	rateLimitCfg := api.RateLimitConfig{
		RequestsPerSecond: appConfig.Limits.RateLimitPerSecond,
		Burst:             appConfig.Limits.RateLimitBurst,
		CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
	}

	server := api.NewServerWithLimits(
		svc,
		adminAuth,
		appConfig.Limits.MaxWSConnectionsTotal,
		appConfig.Limits.MaxWSConnectionsPerIP,
		appConfig.Server.AllowedOrigins,
		rateLimitCfg,
	)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	go func() {
		log.Printf("sap2d API listening on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("ready; press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	server.Stop()
	log.Println("goodbye")
}
