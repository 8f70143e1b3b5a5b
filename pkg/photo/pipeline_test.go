package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// mockFetcher serves canned assets keyed by absolute URL
type mockFetcher struct {
	mu     sync.Mutex
	base   *url.URL
	assets map[string]*legacyclient.Asset
	errs   map[string]error
	calls  map[string]int
}

func newMockFetcher() *mockFetcher {
	base, _ := url.Parse("https://admin.example.org")
	return &mockFetcher{
		base:   base,
		assets: make(map[string]*legacyclient.Asset),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (m *mockFetcher) ResolveURL(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty URL")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return m.base.ResolveReference(parsed).String(), nil
}

func (m *mockFetcher) FetchAsset(ctx context.Context, session *legacyclient.Session, absoluteURL string) (*legacyclient.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[absoluteURL]++
	if err, ok := m.errs[absoluteURL]; ok {
		return nil, err
	}
	if asset, ok := m.assets[absoluteURL]; ok {
		return asset, nil
	}
	return &legacyclient.Asset{URL: absoluteURL, Status: http.StatusNotFound}, nil
}

func (m *mockFetcher) serve(u string, contentType string, body []byte) {
	m.assets[u] = &legacyclient.Asset{URL: u, Status: http.StatusOK, ContentType: contentType, Body: body}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDownloadAndNormalize_ProducesSquareJPEG(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.serve("https://admin.example.org/storage/photos/1.png", "image/png", pngBytes(t, 800, 600))
	pipeline := NewPipeline(fetcher, Options{}, zap.NewNop())

	img, err := pipeline.DownloadAndNormalize(context.Background(), "/storage/photos/1.png", "vol@example.org", nil)
	require.NoError(t, err)

	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, 400, img.Width)
	assert.Equal(t, 400, img.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
	assert.Contains(t, img.DataURI(), "data:image/jpeg;base64,")
}

func TestDownloadAndNormalize_CustomSize(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.serve("https://admin.example.org/p.png", "", pngBytes(t, 50, 120))
	pipeline := NewPipeline(fetcher, Options{Size: 64, Quality: 70}, zap.NewNop())

	img, err := pipeline.DownloadAndNormalize(context.Background(), "p.png", "vol", nil)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Width)
}

func TestDownloadAndNormalize_Failures(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.serve("https://admin.example.org/html", "text/html", []byte("<html></html>"))
	fetcher.serve("https://admin.example.org/lying.png", "image/png", []byte("definitely not an image"))
	fetcher.serve("https://admin.example.org/empty.png", "image/png", nil)
	fetcher.errs["https://admin.example.org/timeout.png"] = errors.New("timeout")

	tests := []struct {
		name   string
		url    string
		errMsg string
	}{
		{name: "not found", url: "/missing.png", errMsg: "status 404"},
		{name: "wrong content type", url: "/html", errMsg: "not an image"},
		{name: "sniffed bytes not an image", url: "/lying.png", errMsg: "not an image"},
		{name: "empty body", url: "/empty.png", errMsg: "empty"},
		{name: "transport error", url: "/timeout.png", errMsg: "timeout"},
		{name: "blank reference", url: "", errMsg: "empty URL"},
	}

	pipeline := NewPipeline(fetcher, Options{}, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := pipeline.DownloadAndNormalize(context.Background(), tt.url, "owner@example.org", nil)
			assert.Nil(t, img)

			var photoErr *PhotoError
			require.True(t, errors.As(err, &photoErr))
			assert.Equal(t, "owner@example.org", photoErr.Owner)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDownloadAndNormalize_DeduplicatesNormalizedURLs(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.serve("https://admin.example.org/storage/default.png", "image/png", pngBytes(t, 10, 10))
	pipeline := NewPipeline(fetcher, Options{Size: 16}, zap.NewNop())

	refs := []string{
		"/storage/default.png",
		"HTTPS://Admin.Example.org/storage/../storage/default.png",
		"https://admin.example.org:443/storage/default.png#top",
	}
	for _, ref := range refs {
		_, err := pipeline.DownloadAndNormalize(context.Background(), ref, "someone", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, fetcher.calls["https://admin.example.org/storage/default.png"])
}

func TestAttach_SoftFailures(t *testing.T) {
	fetcher := newMockFetcher()
	fetcher.serve("https://admin.example.org/a.png", "image/png", pngBytes(t, 20, 20))
	pipeline := NewPipeline(fetcher, Options{Size: 16}, zap.NewNop())

	drafts := []model.UserDraft{
		{LegacyID: "1", Email: "a@example.org", PhotoURL: "/a.png"},
		{LegacyID: "2", Email: "b@example.org", PhotoURL: "/broken.png"},
		{LegacyID: "3", Email: "c@example.org"},
	}

	failures := pipeline.Attach(context.Background(), nil, drafts, 2)

	require.Len(t, failures, 1)
	assert.Equal(t, "b@example.org", failures[0].Owner)
	assert.NotNil(t, drafts[0].Photo)
	assert.Nil(t, drafts[1].Photo)
	assert.Nil(t, drafts[2].Photo)
}

func TestSquareCrop(t *testing.T) {
	assert.Equal(t, image.Rect(100, 0, 700, 600), squareCrop(image.Rect(0, 0, 800, 600)))
	assert.Equal(t, image.Rect(0, 35, 50, 85), squareCrop(image.Rect(0, 0, 50, 120)))
}
