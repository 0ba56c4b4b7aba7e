package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the voice assistant.
type Config struct {
	Deepgram  DeepgramConfig
	OpenAI    OpenAIConfig
	Audio     AudioConfig
	Capture   CaptureConfig
	Speech    SpeechConfig
	Assistant AssistantConfig
	LogLevel  string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
}

type OpenAIConfig struct {
	APIKey          string
	APIBaseURL      string
	TranscribeModel string
	ChatModel       string
	SystemPrompt    string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type CaptureConfig struct {
	Language       string
	Continuous     bool
	InterimResults bool
	SettleDelay    time.Duration
	MaxUtterance   time.Duration
	SimDelay       time.Duration
	ChunkSize      int
}

type SpeechConfig struct {
	Command string
	Pitch   float64
	Rate    float64
}

type AssistantConfig struct {
	// Mode selects the reply generator: "canned" or "openai".
	Mode       string
	ThinkDelay time.Duration
}

// Load resolves configuration from environment variables and defaults.
func Load() Config {
	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		OpenAI: OpenAIConfig{
			APIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:      strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			TranscribeModel: envOrDefault("VOXCHAT_TRANSCRIBE_MODEL", "whisper-1"),
			ChatModel:       envOrDefault("VOXCHAT_CHAT_MODEL", "gpt-4o-mini"),
			SystemPrompt:    strings.TrimSpace(os.Getenv("VOXCHAT_SYSTEM_PROMPT")),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOXCHAT_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOXCHAT_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("VOXCHAT_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("VOXCHAT_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("VOXCHAT_CHANNELS", 1),
		},
		Capture: CaptureConfig{
			Language:       strings.TrimSpace(os.Getenv("VOXCHAT_LANGUAGE")),
			Continuous:     envOrDefaultBool("VOXCHAT_CONTINUOUS", false),
			InterimResults: envOrDefaultBool("VOXCHAT_INTERIM_RESULTS", true),
			SettleDelay:    envOrDefaultMillis("VOXCHAT_SETTLE_DELAY_MS", 100),
			MaxUtterance:   envOrDefaultMillis("VOXCHAT_MAX_UTTERANCE_MS", 10000),
			SimDelay:       envOrDefaultMillis("VOXCHAT_SIM_DELAY_MS", 2000),
			ChunkSize:      envOrDefaultInt("VOXCHAT_AUDIO_CHUNK_SIZE", 4096),
		},
		Speech: SpeechConfig{
			Command: envOrDefault("VOXCHAT_TTS_COMMAND", "espeak"),
			Pitch:   envOrDefaultFloat("VOXCHAT_TTS_PITCH", 1.0),
			Rate:    envOrDefaultFloat("VOXCHAT_TTS_RATE", 1.0),
		},
		Assistant: AssistantConfig{
			Mode:       envOrDefault("VOXCHAT_ASSISTANT", "canned"),
			ThinkDelay: envOrDefaultMillis("VOXCHAT_THINK_DELAY_MS", 1000),
		},
		LogLevel: envOrDefault("VOXCHAT_LOG_LEVEL", "info"),
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Capture.ChunkSize < 256 {
		cfg.Capture.ChunkSize = 4096
	}

	return cfg
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envOrDefaultMillis(key string, fallback int) time.Duration {
	millis := envOrDefaultInt(key, fallback)
	if millis < 0 {
		millis = fallback
	}
	return time.Duration(millis) * time.Millisecond
}
