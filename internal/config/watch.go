package config

import (
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ReloadDelay coalesces the burst of events an editor produces on save
const ReloadDelay = 200 * time.Millisecond

// Watch re-reads the config file whenever it changes and hands valid
// settings to apply. Invalid edits are logged and ignored.
func Watch(log logrus.FieldLogger, apply func(*Settings)) {
	log = log.WithField("component", "config")
	reload := debounce.New(ReloadDelay)

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.WithFields(logrus.Fields{"file": e.Name, "op": e.Op.String()}).Trace("config file event")
		reload(func() {
			s, err := Get()
			if err != nil {
				log.WithError(err).Warn("config reload rejected")
				return
			}
			log.WithField("file", viper.ConfigFileUsed()).Info("config reloaded")
			apply(s)
		})
	})
	viper.WatchConfig()
}
