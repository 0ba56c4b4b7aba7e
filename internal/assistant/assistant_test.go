package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func deterministicCanned() *Canned {
	c := NewCanned()
	c.pick = func(int) int { return 0 }
	return c
}

func TestCannedKeywordRouting(t *testing.T) {
	t.Parallel()

	c := deterministicCanned()

	cases := []struct {
		name       string
		transcript string
		want       string
	}{
		{"weather", "What's the weather like today?", defaultTopics[0].replies[0]},
		{"timer", "Set a TIMER for ten minutes", defaultTopics[1].replies[0]},
		{"music", "play some relaxing music", defaultTopics[2].replies[0]},
		{"joke", "tell me a joke", defaultTopics[3].replies[0]},
		{"calendar", "what's on my calendar tomorrow", defaultTopics[4].replies[0]},
		{"greeting", "Hello there", defaultTopics[5].replies[0]},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.Generate(context.Background(), tc.transcript)
			if err != nil {
				t.Fatalf("generate failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCannedFallsBackOnUnknownInput(t *testing.T) {
	t.Parallel()

	c := deterministicCanned()
	got, err := c.Generate(context.Background(), "quantum flux capacitor maintenance")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != fallbackReplies[0] {
		t.Fatalf("expected fallback reply, got %q", got)
	}
}

func TestCannedNeverFails(t *testing.T) {
	t.Parallel()

	c := NewCanned()
	for _, transcript := range []string{"", "   ", "unmatched gibberish"} {
		if _, err := c.Generate(context.Background(), transcript); err != nil {
			t.Fatalf("canned generator must not fail, got %v for %q", err, transcript)
		}
	}
}

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestFallbackPrefersPrimary(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{reply: "from primary"}
	backup := &stubGenerator{reply: "from backup"}
	f := NewFallback(primary, backup, zerolog.Nop())

	got, err := f.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != "from primary" {
		t.Fatalf("got %q, want primary reply", got)
	}
	if backup.calls != 0 {
		t.Fatalf("backup must not run when primary succeeds")
	}
}

func TestFallbackUsesBackupOnPrimaryError(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{err: errors.New("rate limited")}
	backup := &stubGenerator{reply: "from backup"}
	f := NewFallback(primary, backup, zerolog.Nop())

	got, err := f.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != "from backup" {
		t.Fatalf("got %q, want backup reply", got)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Fatalf("unexpected call counts: primary=%d backup=%d", primary.calls, backup.calls)
	}
}
