package sensors

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// oversampling maps the BMP_TEMP_OSR config value to the driver setting.
var oversampling = []bmxx80.Oversampling{
	bmxx80.Off, bmxx80.O1x, bmxx80.O2x, bmxx80.O4x, bmxx80.O8x, bmxx80.O16x,
}

// BMPTemperature reads the actuator temperature from a BMP280 mounted next
// to it. It satisfies hwapi.TemperatureSource.
type BMPTemperature struct {
	dev  *bmxx80.Dev
	port spi.PortCloser
}

// NewBMPTemperature opens the BMP on the given SPI device.
func NewBMPTemperature(spiDev string, osr byte) (*BMPTemperature, error) {
	if int(osr) >= len(oversampling) || osr == 0 {
		return nil, fmt.Errorf("bmp: temperature oversampling %d out of 1-5", osr)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bmp: periph host init: %w", err)
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("bmp: SPI open %s: %w", spiDev, err)
	}

	opts := bmxx80.Opts{Temperature: oversampling[osr], Pressure: bmxx80.O1x}
	dev, err := bmxx80.NewSPI(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("bmp: init: %w", err)
	}
	return &BMPTemperature{dev: dev, port: port}, nil
}

// MilliCelsius returns the current temperature in m°C.
func (b *BMPTemperature) MilliCelsius() (int32, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return 0, fmt.Errorf("bmp: sense: %w", err)
	}
	return toMilliCelsius(e.Temperature), nil
}

func toMilliCelsius(t physic.Temperature) int32 {
	return int32(math.Round(t.Celsius() * 1000))
}

func (b *BMPTemperature) Close() error {
	return multierr.Combine(b.dev.Halt(), b.port.Close())
}
