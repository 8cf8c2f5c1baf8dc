package main

import (
	"flag"
	"log"

	"github.com/jbabin91/tanstack-start-starter-sub002/internal/api"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/config"
	"github.com/jbabin91/tanstack-start-starter-sub002/internal/database"
)

const version = "0.1.0"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := database.Init(cfg); err != nil {
		return nil, err
	}

	return api.NewApi(*cfg)
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	log.Printf("Starting API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}
