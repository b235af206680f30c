package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Hardware backends selectable with HW_BACKEND.
const (
	BackendSysfs = "sysfs"
	BackendI2C   = "i2c"
	BackendMock  = "mock"
)

// Motion sources selectable with MOTION_SOURCE.
const (
	MotionIMU  = "imu"
	MotionMock = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDVibrator string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicCommand string
	TopicResult  string
	TopicStatus  string

	// Amplifier backend
	HWBackend   string // "sysfs", "i2c" or "mock"
	HWSysfsPath string // driver attribute directory for the sysfs backend
	HWTempPath  string // file with the amplifier temperature in m°C (sysfs backend)
	DRVI2CBus   string
	DRVI2CAddr  uint16

	// BMP temperature sensor used with the i2c backend
	BMPSPIDevice string
	BMPTempOSR   byte

	// Calibration
	CalibrationFile string

	// Motion sensing
	MotionSource         string // "imu" or "mock"
	IMUSPIDevice         string
	IMUCSPin             string
	IMUAccelRange        byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	MotionSampleInterval int  // milliseconds between IMU reads
	MotionPeriod         int  // milliseconds a sample window stays valid
	MotionWindow         int  // samples per window

	// Drive controller
	TempUpperBound      int32  // m°C, above is hot
	TempLowerBound      int32  // m°C, below is cold
	MotionTimeThreshold uint32 // ms, shorter requests skip the motion check
	SteadyVoltageFloor  uint32 // clamp used when cold

	// Timing
	StatusInterval     int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Register debugging
	RegisterDebugAllowedRanges string // e.g. "0x07-0x0F,0x20"

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level singleton state. globalConfig is only written by InitGlobal
// and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config with the values used when a key is absent.
func defaults() *Config {
	return &Config{
		MQTTClientIDVibrator:  "lra-vibrator",
		MQTTClientIDConsole:   "lra-console",
		MQTTClientIDWeb:       "lra-web",
		MQTTClientIDDisplay:   "lra-display",
		TopicCommand:          "haptics/command",
		TopicResult:           "haptics/result",
		TopicStatus:           "haptics/status",
		HWBackend:             BackendSysfs,
		HWSysfsPath:           "/sys/class/leds/vibrator/device",
		DRVI2CAddr:            0x5A,
		BMPTempOSR:            1,
		MotionSource:          MotionIMU,
		MotionSampleInterval:  10,
		MotionPeriod:          2000,
		MotionWindow:          20,
		TempUpperBound:        10000,
		TempLowerBound:        5000,
		MotionTimeThreshold:   100,
		SteadyVoltageFloor:    90,
		StatusInterval:        5000,
		ConsoleLogInterval:    1000,
		WebServerPort:         8080,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func positiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_VIBRATOR":
		c.MQTTClientIDVibrator = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_COMMAND":
		c.TopicCommand = value
	case "TOPIC_RESULT":
		c.TopicResult = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Amplifier backend
	case "HW_BACKEND":
		switch value {
		case BackendSysfs, BackendI2C, BackendMock:
			c.HWBackend = value
		default:
			return fmt.Errorf("HW_BACKEND must be sysfs, i2c or mock, got %q", value)
		}
	case "HW_SYSFS_PATH":
		c.HWSysfsPath = value
	case "HW_TEMP_PATH":
		c.HWTempPath = value
	case "DRV_I2C_BUS":
		c.DRVI2CBus = value
	case "DRV_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid DRV_I2C_ADDR %q: %w", value, err)
		}
		c.DRVI2CAddr = uint16(addr)

	// BMP
	case "BMP_SPI_DEVICE":
		c.BMPSPIDevice = value
	case "BMP_TEMP_OSR":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BMP_TEMP_OSR %q: %w", value, err)
		}
		if val < 0 || val > 5 {
			return fmt.Errorf("BMP_TEMP_OSR must be 0-5, got %d", val)
		}
		c.BMPTempOSR = byte(val)

	// Calibration
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Motion sensing
	case "MOTION_SOURCE":
		if value != MotionIMU && value != MotionMock {
			return fmt.Errorf("MOTION_SOURCE must be imu or mock, got %q", value)
		}
		c.MotionSource = value
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "MOTION_SAMPLE_INTERVAL":
		interval, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.MotionSampleInterval = interval
	case "MOTION_PERIOD":
		period, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.MotionPeriod = period
	case "MOTION_WINDOW":
		window, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.MotionWindow = window

	// Drive controller
	case "TEMP_UPPER_BOUND":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMP_UPPER_BOUND %q: %w", value, err)
		}
		c.TempUpperBound = int32(v)
	case "TEMP_LOWER_BOUND":
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMP_LOWER_BOUND %q: %w", value, err)
		}
		c.TempLowerBound = int32(v)
	case "MOTION_TIME_THRESHOLD":
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid MOTION_TIME_THRESHOLD %q: %w", value, err)
		}
		c.MotionTimeThreshold = uint32(v)
	case "STEADY_VOLTAGE_FLOOR":
		v, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid STEADY_VOLTAGE_FLOOR %q: %w", value, err)
		}
		if v == 0 {
			return fmt.Errorf("STEADY_VOLTAGE_FLOOR must be non-zero")
		}
		c.SteadyVoltageFloor = uint32(v)

	// Timing
	case "STATUS_INTERVAL":
		interval, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.StatusInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.ConsoleLogInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Register debugging
	case "REGISTER_DEBUG_ALLOWED_RANGES":
		if _, err := ParseRegisterRanges(value); err != nil {
			return fmt.Errorf("invalid REGISTER_DEBUG_ALLOWED_RANGES: %w", err)
		}
		c.RegisterDebugAllowedRanges = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.CalibrationFile == "" {
		return fmt.Errorf("CALIBRATION_FILE is required")
	}
	if c.HWBackend == BackendSysfs && c.HWSysfsPath == "" {
		return fmt.Errorf("HW_SYSFS_PATH is required for the sysfs backend")
	}
	if c.MotionSource == MotionIMU && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required when MOTION_SOURCE=imu")
	}
	if c.TempLowerBound >= c.TempUpperBound {
		return fmt.Errorf("TEMP_LOWER_BOUND (%d) must be below TEMP_UPPER_BOUND (%d)", c.TempLowerBound, c.TempUpperBound)
	}
	return nil
}

// RegisterRange is an inclusive range of register addresses.
type RegisterRange struct {
	From, To byte
}

// ParseRegisterRanges parses a list such as "0x07-0x0F,0x20". An empty
// string yields no ranges.
func ParseRegisterRanges(s string) ([]RegisterRange, error) {
	var out []RegisterRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseUint(strings.TrimSpace(lo), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("register %q: %w", lo, err)
		}
		to := from
		if isRange {
			to, err = strconv.ParseUint(strings.TrimSpace(hi), 0, 8)
			if err != nil {
				return nil, fmt.Errorf("register %q: %w", hi, err)
			}
		}
		if to < from {
			return nil, fmt.Errorf("range %q is reversed", part)
		}
		out = append(out, RegisterRange{From: byte(from), To: byte(to)})
	}
	return out, nil
}

// InitGlobal initializes the global configuration from file. Only the
// first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
