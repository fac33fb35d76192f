package confloader

import (
	"github.com/yndnr/kkmgate/internal/telemetry/logger"
)

// LevelReloader returns a Watcher callback that reloads the changed file
// with opts and applies log.level. Other keys are ignored: the rest of the
// configuration is a startup snapshot. Pass the options used at startup so
// the environment and overrides keep their precedence over the file.
func LevelReloader(log logger.Logger, opts ...Option) func(string) {
	return func(path string) {
		l := NewLoader(append(opts[:len(opts):len(opts)], WithConfigFile(path))...)
		var section struct {
			Log struct {
				Level string `koanf:"level"`
			} `koanf:"log"`
		}
		if err := l.Load(&section); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if section.Log.Level == "" {
			return
		}
		old := logger.GetLevel()
		logger.SetLevel(section.Log.Level)
		if now := logger.GetLevel(); now != old {
			log.Info("log level changed", "from", old, "to", now)
		}
	}
}
