package config

import (
	"bytes"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Diff describes what changed between two configs. Only the correction
// tables, the channel list and the log level can be applied without a
// restart; other changed sections are listed in RestartRequired.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ChannelsChanged bool
	AddedChannels   []string
	RemovedChannels []string

	CorrectionsChanged bool

	// RestartRequired names the top-level sections that changed but are
	// only read at startup.
	RestartRequired []string
}

// Reloadable reports whether d carries any change that can be hot-applied.
func (d Diff) Reloadable() bool {
	return d.LogLevelChanged || d.ChannelsChanged || d.CorrectionsChanged
}

// Compare returns the difference between old and new.
func Compare(old, new *Config) Diff {
	var d Diff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Channels, new.Channels) {
		d.ChannelsChanged = true
		oldNames := channelNames(old)
		newNames := channelNames(new)
		for name := range newNames {
			if !oldNames[name] {
				d.AddedChannels = append(d.AddedChannels, name)
			}
		}
		for name := range oldNames {
			if !newNames[name] {
				d.RemovedChannels = append(d.RemovedChannels, name)
			}
		}
		slices.Sort(d.AddedChannels)
		slices.Sort(d.RemovedChannels)
	}

	d.CorrectionsChanged = !sameYAML(old.Corrections, new.Corrections)

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	restart := []struct {
		name    string
		changed bool
	}{
		{"server", !reflect.DeepEqual(oldServer, newServer)},
		{"youtube", old.YouTube != new.YouTube},
		{"audio", old.Audio != new.Audio},
		{"providers", !reflect.DeepEqual(old.Providers, new.Providers)},
		{"summarizer", old.Summarizer != new.Summarizer},
	}
	for _, r := range restart {
		if r.changed {
			d.RestartRequired = append(d.RestartRequired, r.name)
		}
	}
	return d
}

func channelNames(cfg *Config) map[string]bool {
	out := make(map[string]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		out[ch.Name] = true
	}
	return out
}

// sameYAML compares two values by their YAML encoding, which preserves the
// order of ordered-map tables.
func sameYAML(a, b any) bool {
	ea, errA := yaml.Marshal(a)
	eb, errB := yaml.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}
