package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/lra_haptics/internal/command"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/drive"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	status     drive.Status
	haveStatus bool
	result     command.Result
	haveResult bool
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderLines("LRA haptics", "Waiting for", "vibrator..."), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s drive.Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.status = s
		data.haveStatus = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicStatus)

	token = client.Subscribe(cfg.TopicResult, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r command.Result
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("display: result unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.result = r
		data.haveResult = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicResult)

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		lines := displayLines(data.status, data.haveStatus, data.result, data.haveResult)
		data.mu.RUnlock()

		if err := dev.Draw(dev.Bounds(), renderLines(lines...), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

// displayLines lays out up to four 7x13 text rows for the 128x64 panel.
func displayLines(s drive.Status, haveStatus bool, r command.Result, haveResult bool) []string {
	if !haveStatus && !haveResult {
		return []string{"LRA haptics", "Waiting..."}
	}

	var lines []string
	if haveStatus {
		mode := "static cfg"
		if s.Dynamic {
			mode = "dynamic cfg"
		}
		lines = append(lines, fmt.Sprintf("P:%d %s", s.LraPeriod, mode))
	}
	if !haveResult {
		return lines
	}
	if !r.OK {
		return append(lines, fmt.Sprintf("%s FAIL", r.Action), r.Kind)
	}
	lines = append(lines, fmt.Sprintf("%s %dms", r.Action, r.DurationMs))
	if p := r.Plan; p != nil {
		if p.Configured {
			lines = append(lines, fmt.Sprintf("R%d C%d T%d", p.Row, p.Clamp, p.Period))
		}
		if p.Kind == "steady" {
			lines = append(lines, fmt.Sprintf("%.1fC %s", float64(p.Temperature)/1000, p.Thermal))
		}
	}
	return lines
}

func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i == 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}
