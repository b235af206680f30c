// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"

	"github.com/relabs-tech/lra_haptics/internal/command"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/drive"
)

// RunVibrator runs the haptic daemon: commands arrive on the command
// topic, results and periodic status are published back.
func RunVibrator() error {
	log.Println("starting lra-haptics vibrator service")
	cfg := config.Get()

	hw, err := OpenBackend(cfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}

	var ms drive.MotionSource
	if classifier, err := OpenMotion(cfg); err != nil {
		log.Printf("vibrator: motion sensing unavailable, hot vibrations use the default row: %v", err)
	} else {
		ms = classifier
	}

	vib, err := NewVibrator(cfg, hw, ms)
	if err != nil {
		return multierr.Append(fmt.Errorf("calibration: %w", err), hw.Close())
	}
	defer func() {
		if err := vib.Close(); err != nil {
			log.Printf("vibrator: close: %v", err)
		}
	}()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDVibrator)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("vibrator: connected to MQTT broker at %s", cfg.MQTTBroker)

	publish := func(topic string, retained bool, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Printf("vibrator: marshal for %s: %v", topic, err)
			return
		}
		if token := client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
			log.Printf("vibrator: MQTT publish error (%s): %v", topic, token.Error())
		}
	}

	// The paho router delivers messages in order on one goroutine, which
	// keeps one vibration command active at a time.
	token := client.Subscribe(cfg.TopicCommand, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c, err := command.Decode(msg.Payload())
		var res command.Result
		if err != nil {
			res = command.Fail(command.Result{Action: c.Action, Time: time.Now()}, err)
		} else {
			res = command.Handle(vib, c)
		}
		if res.OK {
			log.Printf("vibrator: %s %s ok (%d ms)", res.ID, res.Action, res.DurationMs)
		} else {
			log.Printf("vibrator: %s %s failed [%s]: %s", res.ID, res.Action, res.Kind, res.Error)
		}
		publish(cfg.TopicResult, false, res)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("vibrator: subscribed to %s", cfg.TopicCommand)

	ticker := time.NewTicker(time.Duration(cfg.StatusInterval) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	publish(cfg.TopicStatus, true, vib.Status())
	for {
		select {
		case <-ticker.C:
			publish(cfg.TopicStatus, true, vib.Status())
		case <-sigCh:
			log.Println("vibrator: shutting down")
			if err := vib.Off(); err != nil {
				log.Printf("vibrator: off: %v", err)
			}
			return nil
		}
	}
}
