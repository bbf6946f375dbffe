// Package config holds the firmware's tunables. Default() is what the MCU
// build runs with; host builds may overlay a YAML file (see Load).
package config

import (
	"time"

	"thermoblink/errcode"
	"thermoblink/logx"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Blink     BlinkConfig     `yaml:"blink"`
	Button    ButtonConfig    `yaml:"button"`
	MCUTemp   MCUTempConfig   `yaml:"mcu_temp"`
	SHT31     SHT31Config     `yaml:"sht31"`
	ADC       ADCConfig       `yaml:"adc"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Sim       SimConfig       `yaml:"sim"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// BlinkConfig bounds the LED half-period. Each press halves it; once it
// would drop below MinMS it wraps back to InitialMS.
type BlinkConfig struct {
	InitialMS uint32 `yaml:"initial_ms"`
	MinMS     uint32 `yaml:"min_ms"`
	LogEvery  uint32 `yaml:"log_every"` // log every N blinks
}

type ButtonConfig struct {
	Debounce time.Duration `yaml:"debounce"` // 0 = none
}

type MCUTempConfig struct {
	Period time.Duration `yaml:"period"`
}

type SHT31Config struct {
	Enabled       bool          `yaml:"enabled"`
	Period        time.Duration `yaml:"period"`
	Address       uint16        `yaml:"address"`
	Repeatability string        `yaml:"repeatability"` // "low", "medium", "high"
}

type ADCConfig struct {
	AcquireTimeout time.Duration `yaml:"acquire_timeout"` // 0 = wait indefinitely
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// SimConfig drives the host simulation backend only.
type SimConfig struct {
	AmbientC       float64        `yaml:"ambient_c"`
	DieOffsetC     float64        `yaml:"die_offset_c"` // die runs warmer than ambient
	HumidityPct    float64        `yaml:"humidity_pct"`
	SupplyMV       uint32         `yaml:"supply_mv"`
	ConversionTime time.Duration  `yaml:"conversion_time"`
	NoiseCounts    uint16         `yaml:"noise_counts"`
	PressEvery     time.Duration  `yaml:"press_every"` // 0 = no scripted presses
	I2CFaultEvery  int            `yaml:"i2c_fault_every"`
	CRCFaultEvery  int            `yaml:"crc_fault_every"`
	Calibration    SimCalibration `yaml:"calibration"`
}

type SimCalibration struct {
	Temp30Raw  uint16 `yaml:"temp30_raw"`
	Temp110Raw uint16 `yaml:"temp110_raw"`
	VrefRaw    uint16 `yaml:"vref_raw"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Blink: BlinkConfig{
			InitialMS: 1000,
			MinMS:     50,
			LogEvery:  10,
		},
		Button:  ButtonConfig{Debounce: 0},
		MCUTemp: MCUTempConfig{Period: 4 * time.Second},
		SHT31: SHT31Config{
			Enabled:       true,
			Period:        2 * time.Second,
			Address:       0x44,
			Repeatability: "medium",
		},
		ADC:       ADCConfig{AcquireTimeout: 0},
		Heartbeat: HeartbeatConfig{Interval: 10 * time.Second},
		Sim: SimConfig{
			AmbientC:       22.5,
			DieOffsetC:     4,
			HumidityPct:    45,
			SupplyMV:       3300,
			ConversionTime: 20 * time.Microsecond,
			NoiseCounts:    2,
			Calibration: SimCalibration{
				Temp30Raw:  1760,
				Temp110Raw: 1330,
				VrefRaw:    1530,
			},
		},
	}
}

// Validate rejects configurations the tasks cannot run with.
func (c *Config) Validate() error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: msg}
	}
	switch {
	case c.Blink.MinMS == 0:
		return bad("blink.min_ms must be > 0")
	case c.Blink.InitialMS < c.Blink.MinMS:
		return bad("blink.initial_ms must be >= blink.min_ms")
	case c.Blink.LogEvery == 0:
		return bad("blink.log_every must be > 0")
	case c.MCUTemp.Period <= 0:
		return bad("mcu_temp.period must be > 0")
	case c.SHT31.Enabled && c.SHT31.Period <= 0:
		return bad("sht31.period must be > 0")
	case c.Heartbeat.Interval < 0:
		return bad("heartbeat.interval must be >= 0")
	case c.ADC.AcquireTimeout < 0:
		return bad("adc.acquire_timeout must be >= 0")
	case c.Button.Debounce < 0:
		return bad("button.debounce must be >= 0")
	}
	switch c.SHT31.Repeatability {
	case "", "low", "medium", "high":
	default:
		return bad("sht31.repeatability must be low, medium or high")
	}
	if _, ok := logx.ParseLevel(c.Log.Level); !ok {
		return bad("log.level: unknown level " + c.Log.Level)
	}
	return nil
}
