package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/mufaro-dev/wabank/core/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	if err := cmd.Run(cmd.Options{DefaultConfigPath: "config.yaml"}); err != nil {
		log.Fatalf("wabank: %v", err)
	}
}
