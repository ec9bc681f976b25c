package config

import (
	"github.com/btcsuite/btclog/v2"

	"github.com/vince06fr/lightning/internal/buildlog"
)

const Subsystem = "CONF"

var log btclog.Logger

func init() {
	UseLogger(buildlog.NewSubLogger(Subsystem, nil))
}

// DisableLog disables all library log output.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the package-wide logger used while loading configuration.
func UseLogger(logger btclog.Logger) {
	log = logger
}
