package main

import (
	"github.com/btcsuite/btclog/v2"

	"github.com/vince06fr/lightning/internal/buildlog"
)

const subsystem = "GSPD"

var log btclog.Logger

func init() {
	log = buildlog.NewSubLogger(subsystem, nil)
}
