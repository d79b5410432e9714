package values

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/teampoint/botcore/internal/config"
)

var current atomic.Pointer[config.Config]

// InitWithViper loads the TOML config file and keeps watching it so
// fields tagged reload:"true" pick up edits without a restart.
func InitWithViper(configFile string) error {
	if configFile == "" {
		configFile = "config.toml"
	}
	viper.SetConfigFile(configFile)
	viper.SetConfigType("toml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := unmarshalConfig()
	if err != nil {
		return err
	}
	current.Store(cfg)
	viper.OnConfigChange(func(e fsnotify.Event) {
		newCfg, err := unmarshalConfig()
		if err != nil {
			logrus.Errorf("Config reload failed (%s): %v", e.Name, err)
			return
		}
		old := current.Load()
		// Non-reloadable sections keep their boot-time values.
		newCfg.Database = old.Database
		newCfg.App.AppCache = old.App.AppCache
		current.Store(newCfg)
		logrus.Infof("Config reloaded from %s", e.Name)
	})
	viper.WatchConfig()
	return nil
}

func unmarshalConfig() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func GetConfig() *config.Config {
	return current.Load()
}

// SetConfig replaces the active config. Tests use it to run without a
// config file on disk.
func SetConfig(cfg *config.Config) {
	current.Store(cfg)
}
