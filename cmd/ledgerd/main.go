package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/chainkeeper/internal/node"
	"github.com/dmitrijs2005/chainkeeper/internal/node/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := node.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
