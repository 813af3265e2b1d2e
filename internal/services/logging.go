package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loggerFrom returns the request-scoped logger attached to ctx, or the global
// logger when none is attached.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
