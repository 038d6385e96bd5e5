// Package services holds the bingo core: number ledger, economy, purchases,
// claims and the live session hub.
package services

import (
	"github.com/bellapacxx/bingo-live/utils/logger"
	"github.com/bellapacxx/bingo-live/utils/telemetry"
)

var (
	log    = logger.Named("services")
	tracer = telemetry.Tracer("services")
)
