package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/padswitch/internal/autooff"
	"github.com/thatsimonsguy/padswitch/internal/model"
)

type Config struct {
	ConfigFile string        `json:"-"`
	LogFile    string        `json:"-"`
	LogLevel   zerolog.Level `json:"-"`

	Outputs []model.GPIOPin `json:"outputs"`
	Gate    *model.GPIOPin  `json:"gate"`

	AutoOffMs         int   `json:"auto_off_ms"`
	TickIntervalMs    int   `json:"tick_interval_ms"`
	ClearPinOnAutoOff *bool `json:"clear_pin_on_auto_off"`

	ListenPort      int     `json:"listen_port"`
	RateLimitPerSec float64 `json:"rate_limit_per_sec"`
	RateLimitBurst  int     `json:"rate_limit_burst"`

	Driver   string `json:"driver"`
	GPIOChip string `json:"gpio_chip"`
	SafeMode bool   `json:"safe_mode"`

	JournalPath string `json:"journal_path"`

	MQTTBroker string `json:"mqtt_broker"`
	MQTTTopic  string `json:"mqtt_topic"`

	EnableDatadog bool     `json:"enable_datadog"`
	DDAgentAddr   string   `json:"dd_agent_addr"`
	DDNamespace   string   `json:"dd_namespace"`
	DDTags        []string `json:"dd_tags"`

	NtfyTopic string `json:"ntfy_topic"`

	BootScriptFilePath string `json:"boot_script_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`
	ExecPath           string `json:"exec_path"`
}

// Default returns the reference board layout: six pads and a gate on GPIO12,
// all active-high, with a ten minute auto-off.
func Default() Config {
	clear := true
	cfg := Config{
		LogLevel: zerolog.InfoLevel,
		Outputs: []model.GPIOPin{
			{Number: 27, ActiveHigh: true},
			{Number: 14, ActiveHigh: true},
			{Number: 32, ActiveHigh: true},
			{Number: 33, ActiveHigh: true},
			{Number: 25, ActiveHigh: true},
			{Number: 26, ActiveHigh: true},
		},
		Gate:              &model.GPIOPin{Number: 12, ActiveHigh: true},
		ClearPinOnAutoOff: &clear,
	}
	cfg.applyDefaults()
	return cfg
}

// Load parses flags and the JSON config file. Without -config-file the
// reference layout is used.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("padswitch", flag.ContinueOnError)
	var configFile, logFile, logLevel string
	fs.StringVar(&configFile, "config-file", "", "Path to switch config file (empty for built-in defaults)")
	fs.StringVar(&logFile, "log-file", "", "Path to log file (empty logs to stderr only)")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var cfg Config
	if configFile == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = LoadFile(configFile)
		if err != nil {
			return Config{}, err
		}
	}

	cfg.ConfigFile = configFile
	cfg.LogFile = logFile
	cfg.LogLevel = ParseLogLevel(logLevel)
	return cfg, nil
}

func LoadFile(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.AutoOffMs == 0 {
		cfg.AutoOffMs = 10 * 60 * 1000
	}
	if cfg.TickIntervalMs == 0 {
		cfg.TickIntervalMs = 1000
	}
	if cfg.ClearPinOnAutoOff == nil {
		clear := true
		cfg.ClearPinOnAutoOff = &clear
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 80
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.Driver == "" {
		cfg.Driver = "pinctrl"
	}
	if cfg.GPIOChip == "" {
		cfg.GPIOChip = "gpiochip0"
	}
	if cfg.MQTTTopic == "" {
		cfg.MQTTTopic = "padswitch/status"
	}
	if cfg.DDNamespace == "" {
		cfg.DDNamespace = "padswitch."
	}
	if cfg.DDAgentAddr == "" {
		cfg.DDAgentAddr = "127.0.0.1:8125"
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/padswitch-gpio-init.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/padswitch-gpio.service"
	}
	if cfg.MainServicePath == "" {
		cfg.MainServicePath = "/etc/systemd/system/padswitch.service"
	}
	if cfg.ExecPath == "" {
		cfg.ExecPath = "/usr/local/bin/padswitch"
	}
}

func (cfg *Config) validate() error {
	var (
		problems []string
		usedPins = map[int]string{}
	)

	claim := func(name string, pin model.GPIOPin) {
		if other, exists := usedPins[pin.Number]; exists {
			problems = append(problems, fmt.Sprintf("%s and %s both use pin %d", name, other, pin.Number))
			return
		}
		usedPins[pin.Number] = name
	}

	if len(cfg.Outputs) == 0 {
		problems = append(problems, "at least one output is required")
	}
	if cfg.Gate == nil {
		problems = append(problems, "gate pin is required")
	} else if cfg.Gate.Number < 0 {
		problems = append(problems, fmt.Sprintf("gate has negative pin %d", cfg.Gate.Number))
	} else {
		claim("gate", *cfg.Gate)
	}
	for i, p := range cfg.Outputs {
		if p.Number < 0 {
			problems = append(problems, fmt.Sprintf("outputs[%d] has negative pin %d", i, p.Number))
			continue
		}
		claim(fmt.Sprintf("outputs[%d]", i), p)
	}
	if cfg.AutoOffMs < 1 {
		problems = append(problems, "auto_off_ms must be at least 1")
	} else if int64(cfg.AutoOffMs) > autooff.MaxMillis {
		problems = append(problems, fmt.Sprintf("auto_off_ms must be at most %d", autooff.MaxMillis))
	}
	if cfg.TickIntervalMs < 1 {
		problems = append(problems, "tick_interval_ms must be at least 1")
	} else if int64(cfg.TickIntervalMs) > autooff.MaxMillis {
		problems = append(problems, fmt.Sprintf("tick_interval_ms must be at most %d", autooff.MaxMillis))
	}
	if cfg.RateLimitPerSec < 0 {
		problems = append(problems, "rate_limit_per_sec must not be negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, ", "))
	}
	return nil
}

func (cfg Config) AutoOff() time.Duration {
	return millis(cfg.AutoOffMs)
}

func (cfg Config) TickInterval() time.Duration {
	return millis(cfg.TickIntervalMs)
}

// millis converts a millisecond count, saturating instead of wrapping.
func millis(ms int) time.Duration {
	if int64(ms) > autooff.MaxMillis {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

func (cfg Config) GatePin() model.GPIOPin {
	if cfg.Gate == nil {
		return model.GPIOPin{}
	}
	return *cfg.Gate
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
