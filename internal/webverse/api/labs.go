package api

import (
	"context"
	"strings"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
)

// RemoteLab describes a downloadable lab bundle
type RemoteLab struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Difficulty  string `json:"difficulty"`
	Version     string `json:"version"`
	SHA256      string `json:"sha256"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
}

// CheckLabs asks the authority which labs exist that are not installed
// locally.
func (c *Client) CheckLabs(ctx context.Context, installed []string) ([]RemoteLab, error) {
	payload := map[string]any{
		"installed": installed,
		"client":    map[string]string{"app_version": Version},
	}
	var out struct {
		Missing []RemoteLab `json:"missing"`
	}
	if err := c.post(ctx, "/v1/labs/check", false, payload, &out); err != nil {
		return nil, err
	}

	// Drop obviously broken entries
	missing := out.Missing[:0]
	for _, l := range out.Missing {
		if l.ID != "" && l.DownloadURL != "" && l.SHA256 != "" {
			missing = append(missing, l)
		}
	}
	return missing, nil
}

// Download fetches a lab bundle as raw bytes
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	url := rawURL
	switch {
	case strings.HasPrefix(url, "/"):
		url = c.baseURL + url
	case !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://"):
		url = c.baseURL + "/" + strings.TrimLeft(url, "/")
	}

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, wverrors.Wrapf(wverrors.ErrAPIConnection, "GET %s: %v", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wverrors.Wrapf(wverrors.ErrAPIResponse, "GET %s returned %d", url, resp.StatusCode)
	}
	return resp.Bytes(), nil
}
