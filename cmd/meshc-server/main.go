// meshc-server serves the compile API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meshworks/meshc/internal/api"
	"github.com/meshworks/meshc/internal/compile"
	"github.com/meshworks/meshc/internal/config"
	"github.com/meshworks/meshc/internal/events"
	"github.com/meshworks/meshc/internal/state"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	compiler := compile.New(cfg.Compiler.WorkerBinary)

	var store api.RunStore
	if cfg.MongoDB.Enabled {
		mongoStore, err := state.NewStore(cfg.MongoDB.URI, cfg.MongoDB.Database)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mongoStore.Close(ctx)
		}()
		store = mongoStore
		log.Printf("Run history enabled: %s", cfg.MongoDB.Database)
	}

	var publisher *events.Publisher
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		publisher = events.NewPublisher(client)
		log.Printf("Compile events enabled: %s", cfg.Redis.Addr)
	}

	server := api.NewServer(cfg, compiler, store, publisher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting meshc server on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
