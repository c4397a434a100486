package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-loads the configuration whenever the config file changes and
// passes the result to onChange. A file edit that fails validation is
// reported via onError and the previous configuration stays in effect.
// Components receive updated limits through the callback; nothing reads
// viper after this point.
func Watch(onChange func(*Config), onError func(error)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
