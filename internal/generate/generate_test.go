package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBandForKarma(t *testing.T) {
	require.Equal(t, KarmaLow, BandForKarma(0.5))
	require.Equal(t, KarmaLow, BandForKarma(-2))
	require.Equal(t, KarmaNeutral, BandForKarma(1))
	require.Equal(t, KarmaSlightlyPositive, BandForKarma(3.5))
	require.Equal(t, KarmaHighlyPositive, BandForKarma(8))
}

func TestPromptRender(t *testing.T) {
	p := Prompt{
		Subreddit: "golang",
		PostTitle: "Generics at last",
		Username:  "gopher99",
		AgeYears:  3,
		Context: []ContextLine{
			{Author: "op", Text: "so happy about this", Kind: "post", Score: 42, Sentiment: "positive"},
			{Author: "gopher99", Text: "same here", Kind: "comment", Score: 7, Sentiment: "positive", IsCandidate: true},
		},
		AverageSentiment: 0.61,
		SentimentTrend:   "positive",
		ExtremeTag:       "positive",
		ExtremeText:      "so happy about this",
		KarmaBand:        KarmaSlightlyPositive,
	}

	text := p.Render()
	require.Contains(t, text, "r/golang")
	require.Contains(t, text, "Generics at last")
	require.Contains(t, text, "[cake day user] gopher99")
	require.Contains(t, text, "account turns 3 years old")
	require.Contains(t, text, "Average score: 0.61")
	require.Contains(t, text, "slightly positive")
	require.NotContains(t, text, "attached image")
}

func TestPromptRender_SingularYearAndImages(t *testing.T) {
	p := Prompt{Username: "newbie", AgeYears: 1, Images: []Image{{Data: []byte{1}, Format: "jpeg"}}}
	text := p.Render()
	require.Contains(t, text, "turns 1 year old")
	require.Contains(t, text, "1 attached image")
}

func TestMessage_AppendsSignature(t *testing.T) {
	g := GeneratorFunc(func(ctx context.Context, prompt Prompt) (string, error) {
		return "Happy cake day, friend! ", nil
	})
	msg := Message(context.Background(), g, Prompt{})
	require.True(t, strings.HasPrefix(msg, "Happy cake day, friend!"))
	require.Contains(t, msg, "*I am a bot")
}

func TestMessage_FallbackOnError(t *testing.T) {
	g := GeneratorFunc(func(ctx context.Context, prompt Prompt) (string, error) {
		return "", errors.New("model unavailable")
	})
	msg := Message(context.Background(), g, Prompt{})
	require.Contains(t, msg, FallbackMessage)
}

func TestMessage_FallbackOnEmpty(t *testing.T) {
	g := GeneratorFunc(func(ctx context.Context, prompt Prompt) (string, error) {
		return "   ", nil
	})
	msg := Message(context.Background(), g, Prompt{})
	require.Contains(t, msg, FallbackMessage)
}

func TestTemplateGeneratorTonePerBand(t *testing.T) {
	ctx := context.Background()
	prompt := Prompt{Subreddit: "cats", Username: "alice", AgeYears: 3}

	prompt.KarmaBand = KarmaLow
	low, err := TemplateGenerator{}.Generate(ctx, prompt)
	require.NoError(t, err)
	require.NotContains(t, low, "🎂")

	prompt.KarmaBand = KarmaHighlyPositive
	high, err := TemplateGenerator{}.Generate(ctx, prompt)
	require.NoError(t, err)
	require.Contains(t, high, "u/alice")
	require.Contains(t, high, "3 years")
	require.Contains(t, high, "🎂")
}
