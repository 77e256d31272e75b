// Package invoker calls the vision model that answers the classifier's
// yes/no question.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	DefaultModel = "gpt-4o-mini"
	maxTokens    = 50
	imageDetail  = "low"
	userQuestion = "Is this a hot dog? Answer YES or NO only."
)

const systemPrompt = `You are a hot dog detector. Your ONLY job is to determine if an image contains a hot dog (frankfurter/wiener in a bun).

Respond with ONLY "YES" if the image contains a hot dog, or "NO" if it does not.

A hot dog must be:
- A sausage/frankfurter in a bun
- Can have toppings like mustard, ketchup, relish, onions

NOT a hot dog:
- Just a sausage without a bun
- A hamburger or other sandwich
- Any other food
- Non-food items

Respond with exactly one word: YES or NO`

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

var ErrNoChoices = errors.New("model returned no choices")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAI classifies images with a chat completion call.
type OpenAI struct {
	client openai.Client
	model  string
}

func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Classify reports whether the model answered YES for image. image may be
// a data URL of any image type or bare base64.
func (o *OpenAI) Classify(ctx context.Context, image string) (bool, error) {
	params := openai.ChatCompletionNewParams{
		Model:     o.model,
		MaxTokens: openai.Int(maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    JPEGDataURL(image),
					Detail: imageDetail,
				}),
				openai.TextContentPart(userQuestion),
			}),
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return false, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, ErrNoChoices
	}
	return IsYes(resp.Choices[0].Message.Content), nil
}

// JPEGDataURL strips any image data URL prefix and re-wraps the payload as
// image/jpeg.
func JPEGDataURL(image string) string {
	return "data:image/jpeg;base64," + dataURLPrefix.ReplaceAllString(image, "")
}

// IsYes is true only for a bare YES, ignoring case and surrounding space.
func IsYes(answer string) bool {
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES"
}
