package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/lifesignal/lifesignal/internal/server"
	"github.com/lifesignal/lifesignal/internal/server/config"
)

func main() {

	// Missing .env is fine: configuration falls back to defaults.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
