package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/user/dbbuddy/internal/types"
)

type Config struct {
	DataDir           string `json:"data_dir" mapstructure:"data_dir"`
	LogLevel          string `json:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFile           string `json:"log_file" mapstructure:"log_file"`
	OutFormat         string `json:"out_format" mapstructure:"out_format"`
	TimeoutSeconds    int    `json:"timeout_seconds" mapstructure:"timeout_seconds" validate:"gte=0"`
	DownloadThreshold int    `json:"download_threshold" mapstructure:"download_threshold" validate:"gte=0"`
	ShowThreshold     int    `json:"show_threshold" mapstructure:"show_threshold" validate:"gte=0"`
	CacheTTLSeconds   int    `json:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	UniProt           struct {
		BaseURL       string `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
		MaxConcurrent int    `json:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0,lte=50"`
	} `json:"uniprot" mapstructure:"uniprot"`
	NCBI struct {
		BaseURL string `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
		APIKey  string `json:"api_key" mapstructure:"api_key"`
		Email   string `json:"email" mapstructure:"email" validate:"omitempty,email"`
	} `json:"ncbi" mapstructure:"ncbi"`
	Ensembl struct {
		BaseURL    string `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
		ReqsPerSec int    `json:"reqs_per_sec" mapstructure:"reqs_per_sec" validate:"gte=0"`
		Species    string `json:"species" mapstructure:"species"`
	} `json:"ensembl" mapstructure:"ensembl"`
}

// Defaults returns the configuration used when no file or env overrides it.
func Defaults() *Config {
	cfg := &Config{
		DataDir:           filepath.Dir(DefaultPath()),
		LogLevel:          "info",
		OutFormat:         "summary",
		TimeoutSeconds:    30,
		DownloadThreshold: 5000000,
		ShowThreshold:     100,
		CacheTTLSeconds:   600,
	}
	cfg.UniProt.BaseURL = "https://rest.uniprot.org/uniprotkb"
	cfg.UniProt.MaxConcurrent = 10
	cfg.NCBI.BaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	cfg.Ensembl.BaseURL = "https://rest.ensembl.org"
	cfg.Ensembl.ReqsPerSec = 15
	cfg.Ensembl.Species = "homo_sapiens"
	return cfg
}

// DefaultPath is ~/.dbbuddy/config.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".dbbuddy", "config.json")
}

// Load reads the config file at path, creating it with defaults if it does
// not exist. A .env file in the working directory is loaded first; env vars
// prefixed DBBUDDY_ (dots become underscores) take precedence over the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaults(path, Defaults()); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	defaults, err := ToMap(Defaults())
	if err != nil {
		return nil, err
	}
	for key, val := range Flatten(defaults) {
		v.SetDefault(key, val)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix("DBBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range envAliases {
		if err := v.BindEnv(append([]string{key}, EnvNames(key)...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and reports the first few violations as
// a ConfigError.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return &types.ConfigError{Key: "config", Msg: strings.Join(msgs, "; ")}
}

// Save writes cfg to path as indented JSON, atomically.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeDefaults(path string, cfg *Config) error {
	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into a nested map using its JSON field names.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues flattens cfg to dot-separated keys, optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return m, nil
}

// GetValue returns the raw value stored under a dot-separated key. The file
// is created with defaults if missing.
func GetValue(path, key string) (any, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if _, err := Load(path); err != nil {
			return nil, err
		}
	}
	m, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(m)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under a dot-separated key in an existing config
// file. Values that parse as JSON (numbers, booleans) keep that type.
func SetValue(path, key, value string) error {
	if !KnownKey(key) {
		return fmt.Errorf("unknown config key: %s", key)
	}
	m, err := readRaw(path)
	if err != nil {
		return err
	}
	flat := Flatten(m)
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	flat[key] = parsed
	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}
