// Command pairsyncctl is an operator REPL that creates and joins syncshells
// as a given user.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/pairsync/internal/client/cli"
	"github.com/dmitrijs2005/pairsync/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
