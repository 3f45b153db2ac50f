package engine

import (
	"fmt"

	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/spf13/viper"
)

// LoadMatcherConfig. matcher section of the viper config on top of segment.DefaultConfig.
func LoadMatcherConfig() (segment.Config, error) {
	def := segment.DefaultConfig()
	viper.SetDefault("matcher.max_candidates", def.MaxCandidates)
	viper.SetDefault("matcher.coincident_weight", def.CoincidentWeight)
	viper.SetDefault("matcher.direction_weight", def.DirectionWeight)

	// per key lookups so env overrides of nested keys apply
	cfg := def
	cfg.MaxCandidates = viper.GetInt("matcher.max_candidates")
	cfg.CoincidentWeight = viper.GetFloat64("matcher.coincident_weight")
	cfg.DirectionWeight = viper.GetFloat64("matcher.direction_weight")
	if cfg.MaxCandidates <= 0 {
		return segment.Config{}, fmt.Errorf("matcher config: max_candidates must be positive, got %d", cfg.MaxCandidates)
	}
	if cfg.CoincidentWeight <= 0 || cfg.DirectionWeight < 0 {
		return segment.Config{}, fmt.Errorf("matcher config: weights must not be negative")
	}
	return cfg, nil
}
