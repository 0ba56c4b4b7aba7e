package assistant

import (
	"context"

	"github.com/rs/zerolog"

	"voxchat/internal/ports"
)

// Fallback tries a primary generator and falls back to a backup when it
// fails. With Canned as the backup, a reply is always produced.
type Fallback struct {
	primary ports.ResponseGenerator
	backup  ports.ResponseGenerator
	log     zerolog.Logger
}

func NewFallback(primary, backup ports.ResponseGenerator, log zerolog.Logger) *Fallback {
	return &Fallback{primary: primary, backup: backup, log: log}
}

func (f *Fallback) Generate(ctx context.Context, transcript string) (string, error) {
	reply, err := f.primary.Generate(ctx, transcript)
	if err == nil {
		return reply, nil
	}

	f.log.Warn().Err(err).Msg("primary reply generator failed, using backup")
	return f.backup.Generate(ctx, transcript)
}
