package generate

import (
	"context"
	"fmt"
)

// TemplateGenerator writes greetings from fixed templates, adjusted to the
// karma band and account age. It is the generator used when no external
// language model is wired in.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	age := fmt.Sprintf("%d year%s", p.AgeYears, plural(p.AgeYears))
	switch p.KarmaBand {
	case KarmaLow:
		return fmt.Sprintf("Happy Cake Day, u/%s.", p.Username), nil
	case KarmaNeutral:
		return fmt.Sprintf("Happy Cake Day, u/%s! %s on the site today. 🎂", p.Username, age), nil
	case KarmaSlightlyPositive:
		return fmt.Sprintf("Happy Cake Day, u/%s! 🎂 %s here today. Hope r/%s treats you well!", p.Username, age, p.Subreddit), nil
	default:
		return fmt.Sprintf("Happy Cake Day, u/%s! 🎂🎉 A whole %s of u/%s. r/%s is lucky to have you!", p.Username, age, p.Username, p.Subreddit), nil
	}
}
