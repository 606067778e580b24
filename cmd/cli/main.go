package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/lifesignal/lifesignal/internal/client/cli"
)

func main() {

	_ = godotenv.Load()

	serverURL := flag.String("s", envOrDefault("LIFESIGNAL_SERVER", "http://localhost:8080"), "server base URL")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "help"
	}

	app := cli.NewApp(*serverURL)
	if err := app.Run(context.Background(), command); err != nil {
		log.Fatalf("%v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
