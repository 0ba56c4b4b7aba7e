// Package synth speaks text out loud.
package synth

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"

	"voxchat/internal/ports"
)

// Command synthesizes speech through an external program such as espeak
// or the macOS say utility.
type Command struct {
	program string
}

func NewCommand(program string) *Command {
	if program == "" {
		program = "espeak"
	}
	return &Command{program: program}
}

func (c *Command) Speak(ctx context.Context, text string, opts ports.SpeechOptions) error {
	args := buildArgs(filepath.Base(c.program), text, opts)

	cmd := exec.CommandContext(ctx, c.program, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := string(bytes.TrimSpace(stderr.Bytes()))
		if detail != "" {
			return fmt.Errorf("speech synthesis failed: %w: %s", err, detail)
		}
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	return nil
}

func buildArgs(program, text string, opts ports.SpeechOptions) []string {
	switch program {
	case "say":
		args := []string{}
		if opts.Rate > 0 {
			// say takes words per minute; 1.0 maps to a normal 175 wpm.
			args = append(args, "-r", strconv.Itoa(int(math.Round(opts.Rate*175))))
		}
		return append(args, text)
	default:
		// espeak-style flags.
		args := []string{}
		if opts.Language != "" {
			args = append(args, "-v", opts.Language)
		}
		if opts.Pitch > 0 {
			// espeak pitch is 0..99 with 50 as the default.
			args = append(args, "-p", strconv.Itoa(clamp(int(math.Round(opts.Pitch*50)), 0, 99)))
		}
		if opts.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(int(math.Round(opts.Rate*175))))
		}
		return append(args, text)
	}
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
