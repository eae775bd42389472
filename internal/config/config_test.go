package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/pkg/types"
)

const sampleConfig = `
server:
  listen_addr: ":9130"
  log_level: debug
manifest:
  path: /var/lib/aethervox/manifest.json
  refresh_interval: 1m
channels:
  talk:
    enabled: true
    synthesis: true
    narrator: true
  bubble:
    enabled: true
    synthesis: false
    directional: true
  chat:
    enabled: false
  retainers: true
  queue_chat: true
audio:
  volume: 120
  synthesis_volume: 80
  speed: 100
  synthesis_speed: 110
synthesis:
  backend: edge
  voice_male: en-GB-RyanNeural
  voice_female: en-GB-SoniaNeural
reporting:
  enabled: true
  dir: /var/lib/aethervox/reports
`

func TestLoadFromReader(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log level = %q", cfg.Server.LogLevel)
	}
	if cfg.Manifest.RefreshInterval.Std() != time.Minute {
		t.Errorf("refresh interval = %s", cfg.Manifest.RefreshInterval.Std())
	}
	if !cfg.Channels.Talk.Narrator {
		t.Error("talk narrator not enabled")
	}
	if cfg.Channels.Chat.Enabled {
		t.Error("chat channel should be disabled")
	}
	if cfg.Audio.Volume != 120 || cfg.Audio.SynthesisVolume != 80 {
		t.Errorf("volumes = %d/%d", cfg.Audio.Volume, cfg.Audio.SynthesisVolume)
	}
}

func TestLoadDefaultsApply(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("manifest:\n  path: m.json\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	def := config.Default()
	if cfg.Audio != def.Audio {
		t.Errorf("audio defaults not applied: %+v", cfg.Audio)
	}
	if cfg.Channels.Talk != def.Channels.Talk {
		t.Errorf("talk defaults not applied: %+v", cfg.Channels.Talk)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("manifest:\n  path: m.json\n  shenanigans: true\n"))
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		substr string
	}{
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Server.LogLevel = "verbose" },
			substr: "log_level",
		},
		{
			name:   "missing manifest path",
			mutate: func(c *config.Config) { c.Manifest.Path = "" },
			substr: "manifest.path",
		},
		{
			name:   "volume out of range",
			mutate: func(c *config.Config) { c.Audio.Volume = 300 },
			substr: "audio.volume",
		},
		{
			name:   "speed out of range",
			mutate: func(c *config.Config) { c.Audio.Speed = 10 },
			substr: "audio.speed",
		},
		{
			name:   "remote backend without url",
			mutate: func(c *config.Config) { c.Synthesis.Backend = "remote" },
			substr: "remote_url",
		},
		{
			name:   "openai backend without key",
			mutate: func(c *config.Config) { c.Synthesis.Backend = "openai" },
			substr: "api_key",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Errorf("error %q does not mention %q", err, tc.substr)
			}
		})
	}

	if err := config.Validate(config.Default()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestForChannel(t *testing.T) {
	cfg := config.Default()
	cfg.Channels.Bubble.Enabled = false

	if cfg.Channels.ForChannel(types.ChannelBubble).Enabled {
		t.Error("bubble policy not returned")
	}
	if !cfg.Channels.ForChannel(types.ChannelTalk).Enabled {
		t.Error("talk policy not returned")
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *config.Config, 1)
	w, err := config.NewWatcher(path, func(old, new *config.Config) {
		changed <- new
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if w.Current().Audio.Volume != 120 {
		t.Fatalf("initial volume = %d", w.Current().Audio.Volume)
	}

	updated := strings.Replace(sampleConfig, "volume: 120", "volume: 90", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Audio.Volume != 90 {
			t.Errorf("reloaded volume = %d", cfg.Audio.Volume)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report change")
	}
}

func TestWatcherKeepsOldOnInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := config.NewWatcher(path, nil, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("audio:\n  volume: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Audio.Volume; got != 120 {
		t.Errorf("invalid reload replaced config, volume = %d", got)
	}
}

func TestDiff(t *testing.T) {
	old := config.Default()

	t.Run("empty", func(t *testing.T) {
		if d := config.Diff(old, config.Default()); !d.Empty() {
			t.Errorf("identical configs diffed: %+v", d)
		}
	})

	t.Run("audio", func(t *testing.T) {
		next := config.Default()
		next.Audio.Mute = true
		d := config.Diff(old, next)
		if !d.AudioChanged || d.RestartRequired {
			t.Errorf("diff = %+v", d)
		}
	})

	t.Run("log level", func(t *testing.T) {
		next := config.Default()
		next.Server.LogLevel = config.LogDebug
		d := config.Diff(old, next)
		if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
			t.Errorf("diff = %+v", d)
		}
	})

	t.Run("backend requires restart", func(t *testing.T) {
		next := config.Default()
		next.Synthesis.Backend = "openai"
		if d := config.Diff(old, next); !d.RestartRequired {
			t.Errorf("diff = %+v", d)
		}
	})

	t.Run("manifest", func(t *testing.T) {
		next := config.Default()
		next.Manifest.Path = "elsewhere.json"
		if d := config.Diff(old, next); !d.ManifestChanged {
			t.Errorf("diff = %+v", d)
		}
	})
}
