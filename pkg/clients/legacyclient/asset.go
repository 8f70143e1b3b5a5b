package legacyclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Asset is a downloaded legacy file such as a profile photo
type Asset struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// ResolveURL makes a legacy reference absolute against the base URL
func (c *Client) ResolveURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty URL")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(parsed).String(), nil
}

// FetchAsset downloads an absolute URL. Session cookies are only sent to the legacy host.
func (c *Client) FetchAsset(ctx context.Context, session *Session, absoluteURL string) (*Asset, error) {
	target, err := url.Parse(absoluteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset URL: %w", err)
	}

	var sameHost *Session
	if strings.EqualFold(target.Host, c.baseURL.Host) {
		sameHost = session
	}

	resp, err := c.request(ctx, sameHost).Get(absoluteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	if sameHost != nil {
		sameHost.Merge(resp.Cookies())
	}

	return &Asset{
		URL:         absoluteURL,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
