package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// SetDefaults registers the default values on v so that keys missing from
// the config file still decode.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("layout.watch", d.Layout.Watch)
	v.SetDefault("reconcile.matching", d.Reconcile.Matching)
	v.SetDefault("reconcile.max_passes", d.Reconcile.MaxPasses)
	v.SetDefault("draft.db_path", d.Draft.DBPath)
	v.SetDefault("draft.user_id", d.Draft.UserID)
	v.SetDefault("submit.timeout", d.Submit.Timeout)
	v.SetDefault("submit.vocabulary_ttl", d.Submit.VocabularyTTL)
	v.SetDefault("ui.markdown_style", d.UI.MarkdownStyle)
	v.SetDefault("ui.show_help", d.UI.ShowHelp)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	for name, on := range d.Flags {
		v.SetDefault("flags."+name, on)
	}
}

// DecodeHook is the mapstructure hook used to decode Config. Capability
// tags decode through their text form; durations accept "30s" strings.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
