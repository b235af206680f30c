package main

import (
	"log"

	"github.com/relabs-tech/lra_haptics/internal/app"
	"github.com/relabs-tech/lra_haptics/internal/config"
)

func main() {
	log.Println("starting lra-haptics console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal("haptics_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
