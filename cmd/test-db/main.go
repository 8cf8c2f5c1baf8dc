package main

import (
	"flag"
	"log"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
)

// Connectivity check for deployments: loads the config, runs migrations,
// pings the database and prints a few counts.
func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	log.Printf("Testing database initialization...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabaseType == "postgres" {
		log.Printf("Config loaded - postgres via DATABASE_URL")
	} else {
		log.Printf("Config loaded - sqlite at %s", cfg.DatabasePath)
	}

	if err := database.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.GetDB().Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	users, err := database.CountUsers()
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	sessions, err := database.CountActiveSessions()
	if err != nil {
		log.Fatalf("Failed to count sessions: %v", err)
	}

	log.Printf("Database connection test successful! (%d users, %d active sessions)", users, sessions)
}
