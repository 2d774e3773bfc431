package main

import (
	"log"

	"github.com/prepdeck/prepdeck/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("application initialization error: %v", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		log.Fatalf("application runtime error: %v", err)
	}
}
