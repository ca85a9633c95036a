package main

import (
	"context"
	"log"

	"github.com/latrix/insider/app"
	"github.com/latrix/insider/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
