// Package generate turns a candidate's conversation context into the
// prompt for the external message generator, and falls back to a canned
// greeting when generation fails.
package generate

import (
	"context"
	"fmt"
	"strings"
)

// FallbackMessage is posted when the generator cannot produce text.
const FallbackMessage = "Happy Cake Day! 🎂"

// signature is appended to every posted reply.
const signature = "\n\n*I am a bot sending some cheer in a world that needs more.*"

// Generator produces a greeting from a prompt. Implementations may call a
// language model over the network; tests use a deterministic fake.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// ContextLine is one piece of surrounding conversation, annotated with its
// sentiment label.
type ContextLine struct {
	Author      string
	Text        string
	Kind        string
	Score       int
	Sentiment   string
	IsCandidate bool
}

// Image is a processed image attached to the prompt.
type Image struct {
	Data   []byte
	Format string
}

// Prompt is everything the generator needs to write one greeting.
type Prompt struct {
	Subreddit        string
	PostTitle        string
	Username         string
	AgeYears         int
	Context          []ContextLine
	AverageSentiment float64
	SentimentTrend   string
	ExtremeTag       string
	ExtremeText      string
	KarmaBand        KarmaBand
	Images           []Image
}

// KarmaBand adjusts the tone of the wish to how the bot's past messages
// were received in this subreddit.
type KarmaBand int

const (
	KarmaLow KarmaBand = iota
	KarmaNeutral
	KarmaSlightlyPositive
	KarmaHighlyPositive
)

// BandForKarma maps the bot's average comment score in a subreddit to a
// tone band.
func BandForKarma(avgScore float64) KarmaBand {
	switch {
	case avgScore < 1:
		return KarmaLow
	case avgScore < 3:
		return KarmaNeutral
	case avgScore < 5:
		return KarmaSlightlyPositive
	default:
		return KarmaHighlyPositive
	}
}

func (b KarmaBand) String() string {
	switch b {
	case KarmaLow:
		return "low"
	case KarmaNeutral:
		return "neutral"
	case KarmaSlightlyPositive:
		return "slightly positive"
	default:
		return "highly positive"
	}
}

// toneInstruction is the band-specific closing instruction of the prompt.
func (b KarmaBand) toneInstruction(subreddit string) string {
	switch b {
	case KarmaLow:
		return fmt.Sprintf("Your karma is low in r/%s. Use a strictly polite, neutral, and unobtrusive tone. Avoid any slang, humor, or embellishments. Ignore the conversation context and keep the message very concise.", subreddit)
	case KarmaNeutral:
		return fmt.Sprintf("Your karma is neutral in r/%s. Use a polite and slightly warmer tone. A simple, positive emoji is acceptable. Keep the message concise and let the conversation context inform it.", subreddit)
	case KarmaSlightlyPositive:
		return fmt.Sprintf("Your karma is slightly positive in r/%s. Use a genuinely warm and celebratory tone; a few emojis are acceptable. Let the conversation context inform the message.", subreddit)
	default:
		return fmt.Sprintf("Your karma is highly positive in r/%s. Use a celebratory tone, perhaps with a touch of light, widely understandable humor. Be creative but avoid anything controversial, and let the conversation context inform the message.", subreddit)
	}
}

// Render produces the prompt text sent to the generator.
func (p Prompt) Render() string {
	var b strings.Builder
	b.WriteString("You are a bot that celebrates users' Cake Days. Craft a thoughtful, relevant cake day wish based on the surrounding conversation. Avoid overly quirky or exaggerated humor; aim for a friendly, conversational tone appropriate for the subreddit.\n\n")
	fmt.Fprintf(&b, "Subreddit: r/%s\n", p.Subreddit)
	fmt.Fprintf(&b, "Post title: %s\n", p.PostTitle)

	b.WriteString("Conversation context:\n")
	for _, line := range p.Context {
		marker := ""
		if line.IsCandidate {
			marker = " [cake day user]"
		}
		fmt.Fprintf(&b, "- (%s, score %+d, %s)%s %s: %s\n",
			line.Kind, line.Score, line.Sentiment, marker, line.Author, line.Text)
	}

	fmt.Fprintf(&b, "\nSentiment analysis:\n- Average score: %.2f (range -1 to 1)\n- Most extreme: %s (%q)\n- Trend: %s\n",
		p.AverageSentiment, p.ExtremeTag, p.ExtremeText, p.SentimentTrend)

	fmt.Fprintf(&b, "\nThe user celebrating is %q; their account turns %d year%s old today. Mention their age if it fits naturally, but never connect their age to the post's topic.\n",
		p.Username, p.AgeYears, plural(p.AgeYears))
	if len(p.Images) > 0 {
		fmt.Fprintf(&b, "The post has %d attached image(s); you may reference what they show.\n", len(p.Images))
	}
	b.WriteString("If the overall sentiment is negative, offer support or levity rather than forced cheerfulness.\n")
	b.WriteString("Respond with only the cake day wish text.\n\n")
	b.WriteString(p.KarmaBand.toneInstruction(p.Subreddit))
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// Message runs the generator and appends the bot signature, falling back
// to the canned greeting when generation fails.
func Message(ctx context.Context, g Generator, prompt Prompt) string {
	text, err := g.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		text = FallbackMessage
	}
	return strings.TrimSpace(text) + signature
}
