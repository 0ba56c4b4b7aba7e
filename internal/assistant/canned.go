// Package assistant generates reply text for recognized transcripts.
package assistant

import (
	"context"
	"math/rand"
	"strings"
)

// topic groups keyword triggers with candidate replies.
type topic struct {
	keywords []string
	replies  []string
}

var defaultTopics = []topic{
	{
		keywords: []string{"weather", "rain", "sunny", "forecast", "temperature"},
		replies: []string{
			"It looks clear for the rest of the day, around 22 degrees.",
			"There's a chance of rain later this afternoon, you might want an umbrella.",
			"Expect sunshine this morning with clouds rolling in tonight.",
		},
	},
	{
		keywords: []string{"timer", "alarm", "remind", "reminder"},
		replies: []string{
			"Done, I've set that for you.",
			"Okay, your reminder is in place.",
		},
	},
	{
		keywords: []string{"music", "play", "song"},
		replies: []string{
			"Starting a relaxing playlist now.",
			"Here's something you might like.",
		},
	},
	{
		keywords: []string{"joke", "funny"},
		replies: []string{
			"Why don't scientists trust atoms? Because they make up everything.",
			"I told my computer I needed a break, and it said it would go to sleep.",
		},
	},
	{
		keywords: []string{"calendar", "meeting", "schedule", "appointment"},
		replies: []string{
			"You have two events tomorrow: a stand-up at nine and lunch at noon.",
			"Your next meeting starts in about an hour.",
		},
	},
	{
		keywords: []string{"hello", "hi", "hey"},
		replies: []string{
			"Hello! What can I do for you?",
			"Hi there, I'm listening.",
		},
	},
}

var fallbackReplies = []string{
	"I'm not sure about that, but I can look into it.",
	"Interesting question. Could you tell me a bit more?",
	"Let me think about that one.",
	"I didn't quite get that, but I'm happy to try again.",
}

// Canned picks replies from a fixed table by simple keyword matching.
// It never fails, which makes it the guaranteed terminal generator.
type Canned struct {
	topics   []topic
	fallback []string
	pick     func(n int) int
}

func NewCanned() *Canned {
	return &Canned{
		topics:   defaultTopics,
		fallback: fallbackReplies,
		pick:     rand.Intn,
	}
}

func (c *Canned) Generate(_ context.Context, transcript string) (string, error) {
	lowered := strings.ToLower(transcript)
	for _, t := range c.topics {
		for _, keyword := range t.keywords {
			if strings.Contains(lowered, keyword) {
				return t.replies[c.pick(len(t.replies))], nil
			}
		}
	}
	return c.fallback[c.pick(len(c.fallback))], nil
}
