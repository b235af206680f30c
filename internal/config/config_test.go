package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "haptics_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
# broker
MQTT_BROKER=tcp://localhost:1883
CALIBRATION_FILE=/etc/haptics/cal.yaml
MOTION_SOURCE=mock
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HWBackend != BackendSysfs {
		t.Errorf("HWBackend = %q", cfg.HWBackend)
	}
	if cfg.TempUpperBound != 10000 || cfg.TempLowerBound != 5000 {
		t.Errorf("bounds = %d/%d", cfg.TempUpperBound, cfg.TempLowerBound)
	}
	if cfg.MotionTimeThreshold != 100 || cfg.SteadyVoltageFloor != 90 {
		t.Errorf("controller defaults = %d/%d", cfg.MotionTimeThreshold, cfg.SteadyVoltageFloor)
	}
	if cfg.MotionPeriod != 2000 || cfg.MotionWindow != 20 {
		t.Errorf("motion defaults = %d/%d", cfg.MotionPeriod, cfg.MotionWindow)
	}
	if cfg.TopicCommand != "haptics/command" {
		t.Errorf("TopicCommand = %q", cfg.TopicCommand)
	}
}

func TestLoadOverrides(t *testing.T) {
	body := minimal + `
HW_BACKEND=i2c
DRV_I2C_BUS=1
DRV_I2C_ADDR=0x59
TEMP_UPPER_BOUND=45000
TEMP_LOWER_BOUND=-5000
IMU_ACCEL_RANGE=1
REGISTER_DEBUG_ALLOWED_RANGES=0x07-0x0F, 0x20
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HWBackend != BackendI2C || cfg.DRVI2CBus != "1" || cfg.DRVI2CAddr != 0x59 {
		t.Errorf("backend = %q %q 0x%X", cfg.HWBackend, cfg.DRVI2CBus, cfg.DRVI2CAddr)
	}
	if cfg.TempUpperBound != 45000 || cfg.TempLowerBound != -5000 {
		t.Errorf("bounds = %d/%d", cfg.TempUpperBound, cfg.TempLowerBound)
	}
	if cfg.IMUAccelRange != 1 {
		t.Errorf("IMUAccelRange = %d", cfg.IMUAccelRange)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing broker", "CALIBRATION_FILE=x\nMOTION_SOURCE=mock\n", "MQTT_BROKER"},
		{"missing calibration", "MQTT_BROKER=tcp://b:1883\nMOTION_SOURCE=mock\n", "CALIBRATION_FILE"},
		{"imu without device", "MQTT_BROKER=tcp://b:1883\nCALIBRATION_FILE=x\n", "IMU_SPI_DEVICE"},
		{"unknown key", minimal + "FOO=1\n", "unknown config key"},
		{"bad line", minimal + "JUSTAKEY\n", "invalid config line"},
		{"bad backend", minimal + "HW_BACKEND=spi\n", "HW_BACKEND"},
		{"inverted bounds", minimal + "TEMP_LOWER_BOUND=20000\n", "TEMP_LOWER_BOUND"},
		{"zero floor", minimal + "STEADY_VOLTAGE_FLOOR=0\n", "STEADY_VOLTAGE_FLOOR"},
		{"negative window", minimal + "MOTION_WINDOW=-1\n", "MOTION_WINDOW"},
		{"bad accel range", minimal + "IMU_ACCEL_RANGE=4\n", "IMU_ACCEL_RANGE"},
		{"bad register range", minimal + "REGISTER_DEBUG_ALLOWED_RANGES=0x20-0x10\n", "reversed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseRegisterRanges(t *testing.T) {
	got, err := ParseRegisterRanges("0x07-0x0F, 0x20,,")
	if err != nil {
		t.Fatal(err)
	}
	want := []RegisterRange{{0x07, 0x0F}, {0x20, 0x20}}
	if len(got) != len(want) {
		t.Fatalf("ranges = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, got[i], want[i])
		}
	}

	if r, err := ParseRegisterRanges(""); err != nil || len(r) != 0 {
		t.Errorf("empty = %v, %v", r, err)
	}
	if _, err := ParseRegisterRanges("0x100"); err == nil {
		t.Error("address above 0xFF should fail")
	}
}
