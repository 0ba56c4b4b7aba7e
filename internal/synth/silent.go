package synth

import (
	"context"

	"github.com/rs/zerolog"

	"voxchat/internal/ports"
)

// Silent logs instead of speaking. Used on hosts without a synthesis
// program and in tests.
type Silent struct {
	log zerolog.Logger
}

func NewSilent(log zerolog.Logger) *Silent {
	return &Silent{log: log}
}

func (s *Silent) Speak(_ context.Context, text string, _ ports.SpeechOptions) error {
	s.log.Debug().Str("text", text).Msg("silent synthesizer swallowing speech")
	return nil
}
