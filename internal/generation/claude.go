package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// DefaultModel is used when ClaudeConfig.Model is empty.
const DefaultModel = string(anthropic.ModelClaudeSonnet4_5)

const (
	defaultMaxTokens    = 1024
	imageTemperature    = 0.8
	opponentTemperature = 1.0
)

// ErrUnsupportedImage is returned for MIME types the model cannot read.
var ErrUnsupportedImage = errors.New("unsupported image type")

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ClaudeConfig configures the Claude provider.
type ClaudeConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
	// Timeout bounds each request; zero leaves it to the caller's context.
	Timeout time.Duration
}

// Claude generates profiles with the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// NewClaude builds a Claude provider. Extra request options are appended
// after those derived from cfg.
//
// Precondition: cfg.APIKey must be non-empty.
func NewClaude(cfg ClaudeConfig, logger *zap.Logger, opts ...option.RequestOption) (*Claude, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic api key must not be empty")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Claude{
		client:    anthropic.NewClient(reqOpts...),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

// AcquireFromImage implements Provider.
func (c *Claude) AcquireFromImage(ctx context.Context, image []byte, mimeType string) (character.Profile, error) {
	if !supportedImageTypes[mimeType] {
		return character.Profile{}, wrap(OpImage, fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType))
	}
	if len(image) == 0 {
		return character.Profile{}, wrap(OpImage, errors.New("image is empty"))
	}
	msg := anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
		anthropic.NewTextBlock(imagePrompt),
	)
	p, err := c.generate(ctx, msg, imageTemperature)
	return p, wrap(OpImage, err)
}

// AcquireRandomOpponent implements Provider.
func (c *Claude) AcquireRandomOpponent(ctx context.Context) (character.Profile, error) {
	msg := anthropic.NewUserMessage(anthropic.NewTextBlock(opponentPrompt))
	p, err := c.generate(ctx, msg, opponentTemperature)
	return p, wrap(OpOpponent, err)
}

func (c *Claude) generate(ctx context.Context, msg anthropic.MessageParam, temperature float64) (character.Profile, error) {
	start := time.Now()
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{msg},
	})
	if err != nil {
		return character.Profile{}, fmt.Errorf("calling messages api: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	c.logger.Debug("model response",
		zap.String("model", string(c.model)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", text.Len()),
	)
	if text.Len() == 0 {
		return character.Profile{}, errors.New("empty response")
	}
	return ParseProfile(text.String())
}

var systemPrompt = fmt.Sprintf(`You design creatures for a turn-based battle game called Beast Battler.
Reply with one JSON object and nothing else, using exactly these keys:
{"species": string, "title": string, "element": string, "flavorText": string,
 "stats": {"hp": int, "attack": int, "defense": int, "speed": int},
 "moves": [{"name": string, "description": string, "type": "physical"|"special"|"status",
            "power": int, "accuracy": int 0-100, "visual_prompt": short English phrase}]}
"element" must be one of: %s.
Stats should sum to roughly 300. Generate EXACTLY 3 unique moves.`, elementList())

const imagePrompt = `Identify what this picture shows and turn it into a creative RPG creature card.
Interpret the subject loosely: a keyboard could become a "Cyber Hacker Beast".`

const opponentPrompt = `Invent a random, powerful RPG boss animal.`

func elementList() string {
	tags := element.All()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
