package main

import (
	"log"

	"github.com/relabs-tech/lra_haptics/internal/app"
	"github.com/relabs-tech/lra_haptics/internal/config"
)

func main() {
	log.Println("starting lra-haptics display (MQTT subscriber)")

	if err := config.InitGlobal("haptics_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
