package types

// ---- Output level ----

// Level is the logical state of a digital output.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// ---- Button ----

// ButtonEvent is a zero-payload tag delivered from the button task.
type ButtonEvent uint8

const (
	ButtonPressed ButtonEvent = iota + 1
)

func (e ButtonEvent) String() string {
	if e == ButtonPressed {
		return "pressed"
	}
	return "unknown"
}

// ---- Telemetry payloads ----
// Published on the telemetry bus (retained). Fixed-point, small types to suit
// TinyGo. Err, when non-empty, marks a failed reading and the value fields
// are zero.

type TemperatureReading struct {
	Sensor string // "mcu", "sht31"
	Seq    uint32 // per-sensor reading counter
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16
	TSms  int64
	Err   string
}

type HumidityReading struct {
	Sensor string
	Seq    uint32
	// Hundredths of %RH (e.g. 5034 => 50.34 %RH), 0..10000.
	RHx100 uint16
	TSms   int64
	Err    string
}

type BlinkStatus struct {
	IntervalMS uint32
	Blinks     uint32
	TSms       int64
}

type Heartbeat struct {
	Uptime int64 // ms since boot
	Beats  uint32
}
