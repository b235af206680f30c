package app

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/clamp"
	"github.com/relabs-tech/lra_haptics/internal/config"
	"github.com/relabs-tech/lra_haptics/internal/drive"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/motion"
	"github.com/relabs-tech/lra_haptics/internal/sensors"
)

// OpenBackend returns the amplifier backend selected by HW_BACKEND.
func OpenBackend(cfg *config.Config) (hwapi.HwAPI, error) {
	switch cfg.HWBackend {
	case config.BackendSysfs:
		return hwapi.NewSysfs(cfg.HWSysfsPath, cfg.HWTempPath)

	case config.BackendI2C:
		var temp hwapi.TemperatureSource
		if cfg.BMPSPIDevice != "" {
			bmp, err := sensors.NewBMPTemperature(cfg.BMPSPIDevice, cfg.BMPTempOSR)
			if err != nil {
				return nil, err
			}
			temp = bmp
		} else {
			log.Println("backend: no BMP_SPI_DEVICE, temperature adaptation disabled")
		}
		return hwapi.OpenDRV2624(cfg.DRVI2CBus, cfg.DRVI2CAddr, temp)

	case config.BackendMock:
		log.Println("backend: using mock amplifier")
		return hwapi.NewMock(), nil
	}
	return nil, fmt.Errorf("backend: unknown HW_BACKEND %q", cfg.HWBackend)
}

// OpenMotion returns the motion classifier selected by MOTION_SOURCE.
func OpenMotion(cfg *config.Config) (*motion.Classifier, error) {
	src, err := OpenSampler(cfg)
	if err != nil {
		return nil, err
	}
	p := motion.Params{
		Period: time.Duration(cfg.MotionPeriod) * time.Millisecond,
		Window: cfg.MotionWindow,
	}
	return motion.NewClassifier(src, p), nil
}

// OpenSampler returns the raw gravity source selected by MOTION_SOURCE.
func OpenSampler(cfg *config.Config) (motion.Sampler, error) {
	switch cfg.MotionSource {
	case config.MotionIMU:
		g, err := sensors.NewGravity(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange,
			time.Duration(cfg.MotionSampleInterval)*time.Millisecond)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.MotionMock:
		log.Println("backend: using mock motion sampler")
		return motion.NewMockSampler(motion.Sample{}, 0.1), nil
	default:
		return nil, fmt.Errorf("backend: unknown MOTION_SOURCE %q", cfg.MotionSource)
	}
}

// Bounds returns the drive thresholds from cfg.
func Bounds(cfg *config.Config) drive.Bounds {
	return drive.Bounds{
		Upper:             cfg.TempUpperBound,
		Lower:             cfg.TempLowerBound,
		MotionThresholdMs: cfg.MotionTimeThreshold,
	}
}

// NewVibrator loads the calibration file and builds the controller on hw.
// ms may be nil.
func NewVibrator(cfg *config.Config, hw hwapi.HwAPI, ms drive.MotionSource) (*drive.Vibrator, error) {
	store, err := calibration.Load(cfg.CalibrationFile)
	if err != nil {
		return nil, err
	}
	return drive.New(hw, store, ms, Bounds(cfg), clamp.WithColdFloor(cfg.SteadyVoltageFloor)), nil
}
