// Package openai provides a tts.Provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

const (
	defaultModel       = "gpt-4o-mini-tts"
	defaultMaleVoice   = "onyx"
	defaultFemaleVoice = "nova"
)

// Option is a functional option for the openai Provider.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	timeout time.Duration
	male    string
	female  string
}

// WithBaseURL overrides the default OpenAI API base URL, for
// OpenAI-compatible endpoints.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the speech model (e.g. "tts-1", "gpt-4o-mini-tts").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithVoices overrides the default male and female voices. Empty values
// keep the defaults.
func WithVoices(male, female string) Option {
	return func(c *config) {
		if male != "" {
			c.male = male
		}
		if female != "" {
			c.female = female
		}
	}
}

// Provider implements tts.Provider using the OpenAI speech API. Output is
// MP3.
type Provider struct {
	client      oai.Client
	model       string
	maleVoice   string
	femaleVoice string
}

var _ tts.Provider = (*Provider)(nil)

// New constructs an OpenAI speech Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{
		model:  defaultModel,
		male:   defaultMaleVoice,
		female: defaultFemaleVoice,
	}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.timeout))
	}

	return &Provider{
		client:      oai.NewClient(reqOpts...),
		model:       cfg.model,
		maleVoice:   cfg.male,
		femaleVoice: cfg.female,
	}, nil
}

func (p *Provider) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", tts.ErrSynthesisUnavailable)
	}

	voice := p.maleVoice
	if hint.Gender == tts.GenderFemale {
		voice = p.femaleVoice
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	}

	res, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", tts.ErrSynthesisUnavailable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: read response: %v", tts.ErrSynthesisUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: openai returned no audio", tts.ErrSynthesisUnavailable)
	}
	return data, nil
}
