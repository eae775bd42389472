package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; changes to the
// server listen address or the synthesis backend require a restart and are
// reported through RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AudioChanged covers volume, speed, and mute changes; the mixer applies
	// them on the next tick.
	AudioChanged bool

	// ChannelsChanged covers per-channel policy and queueing toggles; the
	// dispatcher reads these per event, nothing needs re-wiring.
	ChannelsChanged bool

	// ManifestChanged covers path or refresh interval changes; the manifest
	// provider must be re-pointed.
	ManifestChanged bool

	// ReportingChanged covers report sink changes.
	ReportingChanged bool

	// RestartRequired reports changes that cannot be applied live.
	RestartRequired bool
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return d == ConfigDiff{}
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = true
	}

	if old.Audio != new.Audio {
		d.AudioChanged = true
	}
	if old.Channels != new.Channels {
		d.ChannelsChanged = true
	}
	if old.Manifest != new.Manifest {
		d.ManifestChanged = true
	}
	if old.Reporting != new.Reporting {
		d.ReportingChanged = true
	}
	if old.Synthesis.Backend != new.Synthesis.Backend ||
		old.Synthesis.RemoteURL != new.Synthesis.RemoteURL ||
		old.Synthesis.APIKey != new.Synthesis.APIKey {
		d.RestartRequired = true
	}

	return d
}
