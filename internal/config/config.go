package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// SpeechConfig selects and configures the speech-recognition backend, and
// carries the default scoring options applied when a request omits them.
type SpeechConfig struct {
	Mode          string `yaml:"mode"` // mock, azure
	Key           string `yaml:"key"`
	Region        string `yaml:"region"`
	Language      string `yaml:"language"`
	Endpoint      string `yaml:"endpoint"`
	TimeoutMS     int    `yaml:"timeout_ms"`
	GradingSystem string `yaml:"grading_system"`
	Granularity   string `yaml:"granularity"`
	Prosody       bool   `yaml:"prosody"`
}

type AudioConfig struct {
	FFmpegCommand string `yaml:"ffmpeg_command"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRecords    int    `yaml:"max_records"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Speech      SpeechConfig    `yaml:"speech"`
	Audio       AudioConfig     `yaml:"audio"`
	Bus         BusConfig       `yaml:"bus"`
	History     HistoryConfig   `yaml:"history"`
}

func Default() Config {
	return Config{
		ServiceName: "accentd",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Speech: SpeechConfig{
			Mode:          "mock",
			Region:        "eastus",
			Language:      "en-US",
			TimeoutMS:     30000,
			GradingSystem: "HundredMark",
			Granularity:   "Phoneme",
			Prosody:       true,
		},
		Audio: AudioConfig{
			FFmpegCommand: "ffmpeg",
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       false,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		History: HistoryConfig{
			Path:          "./data/accent-history.db",
			RetentionMode: "persistent",
			RetentionDays: 30,
			MaxRecords:    10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "ACCENT_SERVICE_NAME")
	overrideString(&cfg.Environment, "ACCENT_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "ACCENT_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "ACCENT_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "ACCENT_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "ACCENT_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "ACCENT_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Speech.Mode, "ACCENT_SPEECH_MODE")
	overrideString(&cfg.Speech.Key, "ACCENT_SPEECH_KEY")
	overrideString(&cfg.Speech.Region, "ACCENT_SPEECH_REGION")
	overrideString(&cfg.Speech.Language, "ACCENT_SPEECH_LANGUAGE")
	overrideString(&cfg.Speech.Endpoint, "ACCENT_SPEECH_ENDPOINT")
	overrideInt(&cfg.Speech.TimeoutMS, "ACCENT_SPEECH_TIMEOUT_MS")
	overrideString(&cfg.Speech.GradingSystem, "ACCENT_SPEECH_GRADING_SYSTEM")
	overrideString(&cfg.Speech.Granularity, "ACCENT_SPEECH_GRANULARITY")
	overrideBool(&cfg.Speech.Prosody, "ACCENT_SPEECH_PROSODY")
	overrideString(&cfg.Audio.FFmpegCommand, "ACCENT_AUDIO_FFMPEG_COMMAND")
	overrideBool(&cfg.Bus.Enabled, "ACCENT_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "ACCENT_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "ACCENT_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "ACCENT_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "ACCENT_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "ACCENT_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "ACCENT_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "ACCENT_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "ACCENT_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.History.Path, "ACCENT_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "ACCENT_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "ACCENT_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxRecords, "ACCENT_HISTORY_MAX_RECORDS")
	overrideBool(&cfg.History.VacuumOnStart, "ACCENT_HISTORY_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch cfg.Speech.Mode {
	case "mock":
	case "azure":
		if cfg.Speech.Key == "" {
			return errors.New("speech.key must be set when mode=azure")
		}
		if cfg.Speech.Region == "" && cfg.Speech.Endpoint == "" {
			return errors.New("speech.region or speech.endpoint must be set when mode=azure")
		}
	default:
		return errors.New("speech.mode must be one of mock|azure")
	}
	if cfg.Speech.Language == "" {
		return errors.New("speech.language must not be empty")
	}
	if cfg.Speech.TimeoutMS <= 0 {
		return errors.New("speech.timeout_ms must be positive")
	}
	switch cfg.Speech.GradingSystem {
	case "HundredMark", "FivePoint":
	default:
		return errors.New("speech.grading_system must be one of HundredMark|FivePoint")
	}
	switch cfg.Speech.Granularity {
	case "Phoneme", "Word", "FullText":
	default:
		return errors.New("speech.granularity must be one of Phoneme|Word|FullText")
	}
	if cfg.Audio.FFmpegCommand == "" {
		return errors.New("audio.ffmpeg_command must not be empty")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "persistent":
	default:
		return errors.New("history.retention_mode must be one of ephemeral|persistent")
	}
	if cfg.History.RetentionMode == "persistent" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.History.MaxRecords < 0 {
		return errors.New("history.max_records must be >= 0")
	}
	return nil
}
