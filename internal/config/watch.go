package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes on disk and passes each valid
// result to fn. Invalid edits are logged and skipped; fn keeps the last
// good configuration. Watching lasts for the life of the process.
func Watch(path string, fn func(*GlobalConfig)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("ignoring invalid config change", "file", e.Name, "op", e.Op.String(), "error", err)
			return
		}
		slog.Info("config file changed", "file", e.Name, "op", e.Op.String())
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}
