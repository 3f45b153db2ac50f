package util

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ReadConfig. reads data/config.yaml (or the given directories) into viper.
// environment variables override file values, MATCHER_MAX_CANDIDATES overrides matcher.max_candidates.
func ReadConfig(paths ...string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./data/"}
	}
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
