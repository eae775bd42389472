// Package remote provides a tts.Provider that streams synthesis from a
// self-hosted endpoint over WebSocket. The endpoint receives one JSON
// request per line and answers with a sequence of binary Opus frames,
// closing with a JSON done message. Frames are decoded to PCM here so the
// transcode stage sees the same raw audio regardless of network encoding.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

// The endpoint streams 48 kHz mono Opus at 20 ms frame size.
const (
	opusSampleRate  = 48000
	opusChannels    = 1
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per frame.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 960
)

// Option is a functional option for the remote Provider.
type Option func(*Provider)

// WithAPIKey sends a bearer token on the WebSocket handshake.
func WithAPIKey(key string) Option {
	return func(p *Provider) {
		p.apiKey = key
	}
}

// Provider implements tts.Provider against a remote streaming endpoint.
// Output is 48 kHz mono little-endian PCM.
type Provider struct {
	url    string
	apiKey string
}

var _ tts.Provider = (*Provider)(nil)

// New constructs a remote Provider. url must be a ws:// or wss:// endpoint.
func New(url string, opts ...Option) (*Provider, error) {
	if url == "" {
		return nil, fmt.Errorf("remote: url must not be empty")
	}
	p := &Provider{url: url}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// synthesisRequest is the JSON payload sent to the endpoint.
type synthesisRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Gender string `json:"gender,omitempty"`
	Speed  int    `json:"speed,omitempty"`
}

// doneMessage is the JSON text message that terminates a stream.
type doneMessage struct {
	Done    bool   `json:"done"`
	Message string `json:"message,omitempty"`
}

func (p *Provider) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", tts.ErrSynthesisUnavailable)
	}

	var dialOpts *websocket.DialOptions
	if p.apiKey != "" {
		dialOpts = &websocket.DialOptions{
			HTTPHeader: http.Header{"Authorization": {"Bearer " + p.apiKey}},
		}
	}
	conn, _, err := websocket.Dial(ctx, p.url, dialOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: remote: dial: %v", tts.ErrSynthesisUnavailable, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	req, _ := json.Marshal(synthesisRequest{
		Text:   text,
		Voice:  hint.Voice,
		Gender: hint.Gender,
		Speed:  hint.Speed,
	})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		return nil, fmt.Errorf("%w: remote: send request: %v", tts.ErrSynthesisUnavailable, err)
	}

	// Each stream gets its own decoder to keep decoder state consistent
	// across consecutive frames.
	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("remote: create opus decoder: %w", err)
	}

	var audio []byte
	for {
		typ, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: remote: read: %v", tts.ErrSynthesisUnavailable, err)
		}

		switch typ {
		case websocket.MessageBinary:
			pcm, err := dec.Decode(msg, opusFrameSize, false)
			if err != nil {
				return nil, fmt.Errorf("%w: remote: opus decode: %v", tts.ErrSynthesisUnavailable, err)
			}
			audio = append(audio, int16sToBytes(pcm)...)
		case websocket.MessageText:
			var done doneMessage
			if err := json.Unmarshal(msg, &done); err != nil {
				continue
			}
			if done.Done {
				if len(audio) == 0 {
					return nil, fmt.Errorf("%w: remote: %s", tts.ErrSynthesisUnavailable, done.Message)
				}
				return audio, nil
			}
		}
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: remote returned no audio", tts.ErrSynthesisUnavailable)
	}
	return audio, nil
}

// int16sToBytes converts a slice of int16 PCM samples to little-endian bytes.
func int16sToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
