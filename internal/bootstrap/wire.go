// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"voxchat/internal/assistant"
	"voxchat/internal/audio"
	"voxchat/internal/capture"
	"voxchat/internal/chat"
	"voxchat/internal/config"
	"voxchat/internal/ports"
	"voxchat/internal/providers/deepgram"
	"voxchat/internal/providers/sim"
	"voxchat/internal/providers/whisper"
	"voxchat/internal/synth"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *capture.Controller
	Store      *chat.Store
	Assistant  ports.ResponseGenerator
	Config     config.Config
	Log        zerolog.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink) (Services, error) {
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)

	mic := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand)

	// Strict fallback chain: streaming > batch > simulated. The simulated
	// provider always probes successfully, so the chain never comes up empty.
	providers := []ports.SpeechProvider{
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			SmartFormat: cfg.Deepgram.SmartFormat,
			ChunkSize:   cfg.Capture.ChunkSize,
		}, mic, log),
		whisper.NewProvider(whisper.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.APIBaseURL,
			Model:   cfg.OpenAI.TranscribeModel,
		}, mic, log),
		sim.NewProvider(sim.Config{Delay: cfg.Capture.SimDelay}, log),
	}

	controller := capture.NewController(
		providers,
		newSynthesizer(cfg.Speech, log),
		events,
		capture.Config{
			Capture: ports.CaptureConfig{
				Language:       cfg.Capture.Language,
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				InterimResults: cfg.Capture.InterimResults,
				MaxUtterance:   cfg.Capture.MaxUtterance,
			},
			Speech: ports.SpeechOptions{
				Language: cfg.Capture.Language,
				Pitch:    cfg.Speech.Pitch,
				Rate:     cfg.Speech.Rate,
			},
			Continuous:  cfg.Capture.Continuous,
			SettleDelay: cfg.Capture.SettleDelay,
		},
		log,
	)

	return Services{
		Controller: controller,
		Store:      chat.NewStore(),
		Assistant:  newAssistant(cfg, log),
		Config:     cfg,
		Log:        log,
	}, nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger()
}

func newSynthesizer(cfg config.SpeechConfig, log zerolog.Logger) ports.Synthesizer {
	if cfg.Command == "" || cfg.Command == "silent" {
		return synth.NewSilent(log)
	}
	return synth.NewCommand(cfg.Command)
}

func newAssistant(cfg config.Config, log zerolog.Logger) ports.ResponseGenerator {
	canned := assistant.NewCanned()
	if cfg.Assistant.Mode != "openai" || cfg.OpenAI.APIKey == "" {
		return canned
	}

	primary := assistant.NewOpenAI(assistant.OpenAIConfig{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.APIBaseURL,
		Model:        cfg.OpenAI.ChatModel,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	})
	return assistant.NewFallback(primary, canned, log)
}
