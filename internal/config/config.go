package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const DefaultSourceURL = "https://dados.cvm.gov.br/dados/FI/DOC/EXTRATO/DADOS/extrato_fi.csv"

type Config struct {
	Log       Log       `mapstructure:"log"       validate:"required"`
	Telemetry Telemetry `mapstructure:"telemetry" validate:"required"`
	Source    Source    `mapstructure:"source"    validate:"required"`
	Store     Store     `mapstructure:"store"     validate:"required"`
	Sniff     Sniff     `mapstructure:"sniff"     validate:"required"`
	Preview   Preview   `mapstructure:"preview"`
}

type Log struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogDir   string `mapstructure:"log_dir"`
}

type Telemetry struct {
	Enabled     bool              `mapstructure:"enabled"`
	Exporter    string            `mapstructure:"exporter"     validate:"oneof=otlp stdout none"`
	Endpoint    string            `mapstructure:"endpoint"`
	Protocol    string            `mapstructure:"protocol"     validate:"omitempty,oneof=grpc http"`
	Insecure    bool              `mapstructure:"insecure"`
	Headers     map[string]string `mapstructure:"headers"`
	ServiceName string            `mapstructure:"service_name" validate:"required"`
}

type Source struct {
	URL      string        `mapstructure:"url"      validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"required,gt=0"`
	Progress bool          `mapstructure:"progress"`
}

type Store struct {
	Directory string `mapstructure:"directory" validate:"required"`
	Filename  string `mapstructure:"filename"  validate:"required,excludesall=/\\"`
	Suffix    string `mapstructure:"suffix"    validate:"required"`
}

type Sniff struct {
	Encodings  []string `mapstructure:"encodings"   validate:"min=1,dive,required"`
	Delimiters []string `mapstructure:"delimiters"  validate:"min=1,dive,required"`
	SampleRows int      `mapstructure:"sample_rows" validate:"min=1"`
	MinColumns int      `mapstructure:"min_columns" validate:"min=1"`
}

type Preview struct {
	Rows int `mapstructure:"rows" validate:"min=0"`
}

// DelimiterRunes returns the candidate delimiters in priority order.
// A delimiter is a single character; `\t` and `tab` both spell a tab.
func (s Sniff) DelimiterRunes() ([]rune, error) {
	out := make([]rune, 0, len(s.Delimiters))
	for _, d := range s.Delimiters {
		switch strings.ToLower(d) {
		case `\t`, "tab":
			out = append(out, '\t')
			continue
		}
		r := []rune(d)
		if len(r) != 1 {
			return nil, fmt.Errorf("delimiter %q must be a single character", d)
		}
		if r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
			return nil, fmt.Errorf("delimiter %q is not usable", d)
		}
		out = append(out, r[0])
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.log_level", "info")
	v.SetDefault("log.log_dir", "logs")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.protocol", "grpc")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "cvm-extrato")
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.timeout", time.Duration(60)*time.Second)
	v.SetDefault("source.progress", true)
	v.SetDefault("store.directory", ".")
	v.SetDefault("store.filename", "extrato_fi.csv")
	v.SetDefault("store.suffix", ".csv")
	v.SetDefault("sniff.encodings", []string{"utf-8", "latin1", "iso-8859-1"})
	v.SetDefault("sniff.delimiters", []string{";", "/", "|", `\t`, ","})
	v.SetDefault("sniff.sample_rows", 2)
	v.SetDefault("sniff.min_columns", 1)
	v.SetDefault("preview.rows", 5)
}

// Default returns the configuration used when no file, env or flag overrides anything.
func Default() Config {
	cfg, err := LoadWith(viper.New(), "")
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

func Load(cfgFile string) (Config, error) {
	return LoadWith(viper.GetViper(), cfgFile)
}

// LoadWith reads configuration into v, which may already carry bound flags.
func LoadWith(v *viper.Viper, cfgFile string) (Config, error) {
	v.AutomaticEnv()
	v.SetEnvPrefix("CVM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Flexible file loading
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cvm-extrato")
		v.AddConfigPath("/etc/cvm-extrato")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config read error: %w", err)
		}
		// Not found is ok, use defaults/env
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	if _, err := cfg.Sniff.DelimiterRunes(); err != nil {
		return Config{}, fmt.Errorf("validation failed: %w", err)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp" && cfg.Telemetry.Endpoint == "" {
		return Config{}, fmt.Errorf("telemetry.endpoint is required when using otlp exporter")
	}
	return cfg, nil
}
