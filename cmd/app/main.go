package main

import (
	"flag"
	"log"
	"os"

	"FinScope/internal/di"
	"FinScope/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s bars=%s fundamentals=%s", cfg.Environment, cfg.Bars.Source, cfg.Analysis.Fundamentals.Provider)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v results=%s requests=%s", cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic, cfg.Kafka.RequestsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
