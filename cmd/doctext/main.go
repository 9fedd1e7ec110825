package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/wudi/doctext/config"
	"github.com/wudi/doctext/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	if err := logging.Setup(cfg.LoggerConfig()); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	Execute(cfg)
}
