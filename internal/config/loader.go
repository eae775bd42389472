package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidSynthesisBackends lists the synthesis backend names shipped with the
// daemon. Used by [Validate] to warn about unrecognised names, which may be
// typos or externally registered backends.
var ValidSynthesisBackends = []string{"edge", "openai", "remote"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] values and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Manifest.Path == "" {
		errs = append(errs, errors.New("manifest.path is required"))
	}
	if cfg.Manifest.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("manifest.refresh_interval %s is negative", cfg.Manifest.RefreshInterval.Std()))
	}

	if err := validatePercent("audio.volume", cfg.Audio.Volume, 0, 200); err != nil {
		errs = append(errs, err)
	}
	if err := validatePercent("audio.synthesis_volume", cfg.Audio.SynthesisVolume, 0, 200); err != nil {
		errs = append(errs, err)
	}
	if err := validatePercent("audio.speed", cfg.Audio.Speed, 50, 200); err != nil {
		errs = append(errs, err)
	}
	if err := validatePercent("audio.synthesis_speed", cfg.Audio.SynthesisSpeed, 50, 200); err != nil {
		errs = append(errs, err)
	}

	if name := cfg.Synthesis.Backend; name != "" && !slices.Contains(ValidSynthesisBackends, name) {
		slog.Warn("unknown synthesis backend; may be a typo or externally registered",
			"name", name,
			"known", ValidSynthesisBackends,
		)
	}
	if cfg.Synthesis.Backend == "remote" && cfg.Synthesis.RemoteURL == "" {
		errs = append(errs, errors.New("synthesis.remote_url is required when synthesis.backend is remote"))
	}
	if cfg.Synthesis.Backend == "openai" && cfg.Synthesis.APIKey == "" {
		errs = append(errs, errors.New("synthesis.api_key is required when synthesis.backend is openai"))
	}
	if cfg.Synthesis.Backend == "" {
		anySynth := cfg.Channels.Talk.Synthesis || cfg.Channels.BattleTalk.Synthesis ||
			cfg.Channels.Bubble.Synthesis || cfg.Channels.Chat.Synthesis
		if anySynth {
			slog.Warn("channels allow synthesized lines but synthesis.backend is empty; such lines will be dropped")
		}
	}

	if cfg.Reporting.Enabled && cfg.Reporting.Dir == "" && cfg.Reporting.UploadURL == "" && cfg.Reporting.PostgresDSN == "" {
		slog.Warn("reporting.enabled is set but no report sink is configured")
	}

	return errors.Join(errs...)
}

func validatePercent(field string, v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("%s %d is out of range [%d, %d]", field, v, min, max)
	}
	return nil
}
