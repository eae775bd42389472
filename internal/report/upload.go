package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Uploader posts reports to a collection endpoint as JSON. A non-2xx
// response is an error; the caller's fire-and-forget semantics mean the
// report is simply lost from this sink (the file store still has it).
type Uploader struct {
	url    string
	client *http.Client
}

var _ Sink = (*Uploader)(nil)

// NewUploader targets url, which receives POST requests with a JSON body.
func NewUploader(url string) (*Uploader, error) {
	if url == "" {
		return nil, fmt.Errorf("report: upload url must not be empty")
	}
	return &Uploader{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (u *Uploader) Name() string { return "upload" }

func (u *Uploader) Emit(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("report: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("report: upload: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("report: upload: unexpected status %s", res.Status)
	}
	return nil
}
