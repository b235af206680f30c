package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/lra_haptics/internal/command"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/drive"
)

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to results
	resultToken := client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r command.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: result unmarshal error: %v", err)
			return
		}
		fmt.Println(formatResult(r))
	})
	resultToken.Wait()
	if resultToken.Error() != nil {
		return resultToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicResult)

	// Subscribe to status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s drive.Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(s))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatResult(r command.Result) string {
	if !r.OK {
		return fmt.Sprintf("[RES ] %-9s id=%s FAILED kind=%s: %s", r.Action, r.ID, r.Kind, r.Error)
	}
	line := fmt.Sprintf("[RES ] %-9s id=%s ok duration=%dms", r.Action, r.ID, r.DurationMs)
	if p := r.Plan; p != nil {
		line += " " + formatPlan(*p)
	}
	return line
}

func formatPlan(p drive.Plan) string {
	s := fmt.Sprintf("%s/%s loop=%s", p.Kind, p.Mode, p.Loop)
	if p.Configured {
		s += fmt.Sprintf(" row=%d clamp=%d period=%d shape=%s", p.Row, p.Clamp, p.Period, p.Shape)
	}
	if p.Kind == "steady" {
		s += fmt.Sprintf(" temp=%.1f°C (%s)", float64(p.Temperature)/1000, p.Thermal)
	}
	if p.Motion != "" {
		s += " motion=" + p.Motion
	}
	return s
}

func formatStatus(s drive.Status) string {
	line := fmt.Sprintf("[STAT] dynamic=%t period=%d close-loop=%dms", s.Dynamic, s.LraPeriod, s.CloseLoopThreshold)
	if t := s.Tables; t != nil {
		line += fmt.Sprintf(" effect=%v steady=%v cold=(%d,%d)",
			t.Effect.Clamps, t.Steady.Clamps, t.Steady.ColdClamp, t.Steady.ColdPeriod)
	}
	return line
}
