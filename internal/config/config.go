package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/triplewave/internal/channel"
	"github.com/coreman2200/triplewave/internal/input"
	"github.com/coreman2200/triplewave/internal/layout"
	"github.com/coreman2200/triplewave/internal/led"
	"github.com/coreman2200/triplewave/internal/protocol"
)

var ErrInvalid = errors.New("invalid config")

type Channel struct {
	Frequency int64         `yaml:"frequency"` // tenths of Hz
	Step      int           `yaml:"step"`
	Phase     int           `yaml:"phase"` // tenths of a degree
	State     channel.State `yaml:"state"`
	Mode      channel.Mode  `yaml:"mode"`
	FSync     string        `yaml:"fsync,omitempty"` // chip select pin, empty for the port's own CS
}

type Generator struct {
	Driver   string  `yaml:"driver"` // "spi" | "sim"
	Port     string  `yaml:"port"`   // spireg name, empty for the first port
	MCLKHz   int64   `yaml:"mclk_hz"`
	SPIHz    int64   `yaml:"spi_hz"`
	SilentHz float64 `yaml:"silent_hz"`
}

type Display struct {
	Driver       string `yaml:"driver"` // "lcd" | "terminal" | "none"
	Bus          string `yaml:"bus"`    // i2creg name, empty for the first bus
	Addr         uint16 `yaml:"addr"`
	Cols         int    `yaml:"cols"`
	Rows         int    `yaml:"rows"`
	ChannelWidth int    `yaml:"channel_width"`
	StatusPin    string `yaml:"status_pin"` // blinks the fatal code when the LCD is missing
	RefreshMs    int    `yaml:"refresh_ms"`
}

type LEDs struct {
	Driver    string   `yaml:"driver"` // "gpio" | "nrz" | "screen" | "sim"
	Pins      []string `yaml:"pins"`
	Intensity []int    `yaml:"intensity"` // per LED 0..255, 0 for plain on/off
	PWMHz     int64    `yaml:"pwm_hz"`
	SPIPort   string   `yaml:"spi_port"` // nrz strip port
	Count     int      `yaml:"count"`    // LEDs when there are no pins to count
}

type Animation struct {
	Style   led.Style `yaml:"style"`
	ShowMs  int       `yaml:"show_ms"`
	BlankMs int       `yaml:"blank_ms"`
	FlashMs int       `yaml:"flash_ms"`
}

type Input struct {
	Serial          string             `yaml:"serial"`
	Baud            int                `yaml:"baud"`
	DebounceMs      int                `yaml:"debounce_ms"`
	RepeatMs        int                `yaml:"repeat_ms"`
	PulsesPerDetent int                `yaml:"pulses_per_detent"`
	PollMs          int                `yaml:"poll_ms"`
	Slots           []input.SlotConfig `yaml:"slots"`
}

type Config struct {
	Listen    string    `yaml:"listen"`
	PollMs    int       `yaml:"poll_ms"`
	Channels  []Channel `yaml:"channels"`
	Generator Generator `yaml:"generator"`
	Display   Display   `yaml:"display"`
	LEDs      LEDs      `yaml:"leds"`
	Animation Animation `yaml:"animation"`
	Input     Input     `yaml:"input"`
}

// Default is the front panel as built: three muted sine channels, a 20x4
// LCD, three dimmed panel LEDs and a 230400 baud encoder link.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		PollMs: 2,
		Channels: []Channel{
			{Frequency: 5233, Step: 2, State: channel.Muted, Mode: channel.Sine, FSync: "GPIO8"},
			{Frequency: 6593, Step: 2, State: channel.Muted, Mode: channel.Sine, FSync: "GPIO7"},
			{Frequency: 7939, Step: 2, State: channel.Muted, Mode: channel.Sine, FSync: "GPIO25"},
		},
		Generator: Generator{
			Driver:   "spi",
			MCLKHz:   25000000,
			SPIHz:    1000000,
			SilentHz: 100000,
		},
		Display: Display{
			Driver:       "lcd",
			Addr:         0x27,
			Cols:         20,
			Rows:         4,
			ChannelWidth: 7,
			StatusPin:    "GPIO26",
			RefreshMs:    50,
		},
		LEDs: LEDs{
			Driver:    "gpio",
			Pins:      []string{"GPIO12", "GPIO13", "GPIO19"},
			Intensity: []int{32, 32, 52},
			PWMHz:     1000,
		},
		Animation: Animation{
			Style:   led.Random,
			ShowMs:  led.PanelShow,
			BlankMs: led.PanelBlank,
			FlashMs: led.DefaultFlash,
		},
		Input: Input{
			Serial:          "/dev/ttyUSB0",
			Baud:            230400,
			DebounceMs:      input.DebounceTime,
			RepeatMs:        input.RepeatTime,
			PulsesPerDetent: input.DefaultPulsesPerDetent,
			PollMs:          1,
			Slots: []input.SlotConfig{
				{ID: 0, Clock: "GPIO17", Data: "GPIO27", Button: "GPIO22"},
				{ID: 1, Clock: "GPIO5", Data: "GPIO6", Button: "GPIO16"},
				{ID: 2, Clock: "GPIO23", Data: "GPIO24", Button: "GPIO20"},
				{ID: protocol.ResetID, Button: "GPIO21"},
			},
		},
	}
}

// Panel is the display geometry.
func (c *Config) Panel() layout.Panel {
	return layout.Panel{Cols: c.Display.Cols, Rows: c.Display.Rows, ChannelWidth: c.Display.ChannelWidth}
}

// ChannelConfigs converts the channel list into constructor configs, ids in list order.
func (c *Config) ChannelConfigs() []channel.Config {
	out := make([]channel.Config, len(c.Channels))
	silent := int64(c.Generator.SilentHz * 10)
	for i, ch := range c.Channels {
		out[i] = channel.Config{
			ID:        i,
			Frequency: ch.Frequency,
			Step:      ch.Step,
			Phase:     ch.Phase,
			State:     ch.State,
			Mode:      ch.Mode,
			Silent:    silent,
		}
	}
	return out
}

// LEDIntensity is the per LED intensity table, one entry per LED.
func (c *Config) LEDIntensity() []uint8 {
	out := make([]uint8, c.LEDCount())
	for i := 0; i < len(out) && i < len(c.LEDs.Intensity); i++ {
		out[i] = uint8(c.LEDs.Intensity[i])
	}
	return out
}

// LEDCount is the size of the LED bank.
func (c *Config) LEDCount() int {
	if len(c.LEDs.Pins) > 0 {
		return len(c.LEDs.Pins)
	}
	if c.LEDs.Count > 0 {
		return c.LEDs.Count
	}
	return len(c.LEDs.Intensity)
}

func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	n := len(c.Channels)
	if n == 0 || n > protocol.NumChannels {
		bad("need 1..%d channels, have %d", protocol.NumChannels, n)
	}
	synced := 0
	for i, ch := range c.Channels {
		if ch.Frequency < 0 || ch.Frequency >= channel.MaxFrequency {
			bad("channel %d: frequency %d out of range", i, ch.Frequency)
		}
		if ch.Phase < 0 || ch.Phase >= channel.MaxPhase {
			bad("channel %d: phase %d out of range", i, ch.Phase)
		}
		if ch.Step < 0 || ch.Step > channel.MaxStep {
			bad("channel %d: step %d out of range", i, ch.Step)
		}
		if ch.State == channel.Sync {
			synced++
		}
	}
	if synced != 0 && synced != n {
		bad("sync must be set on every channel or none")
	}
	if c.Generator.SilentHz <= 0 {
		bad("silent_hz must be positive")
	}
	if err := c.Panel().Check(n); err != nil {
		bad("%v", err)
	}
	if k := c.LEDCount(); len(c.LEDs.Intensity) > k {
		bad("%d intensities for %d leds", len(c.LEDs.Intensity), k)
	}
	for i, v := range c.LEDs.Intensity {
		if v < 0 || v > 255 {
			bad("led %d: intensity %d out of range 0..255", i, v)
		}
	}
	if c.PollMs <= 0 {
		bad("poll_ms must be positive")
	}
	if c.Input.Baud <= 0 {
		bad("baud must be positive")
	}
	return errors.Join(errs...)
}

// Load reads path over the defaults, so a file only needs the keys it changes.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
