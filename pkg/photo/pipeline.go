package photo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jakechorley/legacy-migrator/pkg/clients/legacyclient"
	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

const normalizeFlags = purell.FlagsSafe |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// AssetFetcher is the subset of the legacy client the pipeline needs
type AssetFetcher interface {
	ResolveURL(ref string) (string, error)
	FetchAsset(ctx context.Context, session *legacyclient.Session, absoluteURL string) (*legacyclient.Asset, error)
}

// PhotoError is a soft failure: the owner is migrated without a photo
type PhotoError struct {
	Owner string
	URL   string
	Err   error
}

func (e *PhotoError) Error() string {
	return fmt.Sprintf("photo for %s (%s): %v", e.Owner, e.URL, e.Err)
}

func (e *PhotoError) Unwrap() error {
	return e.Err
}

// Options configures photo normalization
type Options struct {
	Size      int
	Quality   int
	CacheSize int
	CacheTTL  time.Duration
}

type cached struct {
	image *model.EmbeddedImage
	err   error
}

// Pipeline downloads and normalizes profile photos. The same normalized URL is fetched
// at most once while its cache entry lives.
type Pipeline struct {
	fetcher AssetFetcher
	opts    Options
	cache   *expirable.LRU[string, cached]
	group   singleflight.Group
	logger  *zap.Logger
}

// NewPipeline creates a photo pipeline
func NewPipeline(fetcher AssetFetcher, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Size <= 0 {
		opts.Size = 400
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 85
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	return &Pipeline{
		fetcher: fetcher,
		opts:    opts,
		cache:   expirable.NewLRU[string, cached](opts.CacheSize, nil, opts.CacheTTL),
		logger:  logger,
	}
}

// DownloadAndNormalize fetches the photo at rawURL and returns it normalized.
// Every failure is a *PhotoError.
func (p *Pipeline) DownloadAndNormalize(ctx context.Context, rawURL, owner string, session *legacyclient.Session) (*model.EmbeddedImage, error) {
	key, err := p.normalizeURL(rawURL)
	if err != nil {
		return nil, &PhotoError{Owner: owner, URL: rawURL, Err: err}
	}

	if hit, ok := p.cache.Get(key); ok {
		return p.result(owner, key, hit)
	}

	value, _, _ := p.group.Do(key, func() (any, error) {
		entry := p.download(ctx, key, session)
		// Cancellation says nothing about the photo itself
		if !errors.Is(entry.err, context.Canceled) && !errors.Is(entry.err, context.DeadlineExceeded) {
			p.cache.Add(key, entry)
		}
		return entry, nil
	})
	return p.result(owner, key, value.(cached))
}

func (p *Pipeline) result(owner, url string, entry cached) (*model.EmbeddedImage, error) {
	if entry.err != nil {
		return nil, &PhotoError{Owner: owner, URL: url, Err: entry.err}
	}
	return entry.image, nil
}

func (p *Pipeline) download(ctx context.Context, url string, session *legacyclient.Session) cached {
	asset, err := p.fetcher.FetchAsset(ctx, session, url)
	if err != nil {
		return cached{err: err}
	}
	if asset.Status != http.StatusOK {
		return cached{err: fmt.Errorf("unexpected status %d", asset.Status)}
	}
	if len(asset.Body) == 0 {
		return cached{err: errors.New("empty response body")}
	}
	if ct := strings.ToLower(asset.ContentType); ct != "" && !strings.HasPrefix(ct, "image/") {
		return cached{err: fmt.Errorf("content type %q is not an image", asset.ContentType)}
	}

	img, err := Normalize(asset.Body, p.opts.Size, p.opts.Quality)
	if err != nil {
		return cached{err: err}
	}
	return cached{image: img}
}

func (p *Pipeline) normalizeURL(rawURL string) (string, error) {
	resolved, err := p.fetcher.ResolveURL(rawURL)
	if err != nil {
		return "", err
	}
	normalized, err := purell.NormalizeURLString(resolved, normalizeFlags)
	if err != nil {
		return "", fmt.Errorf("failed to normalize URL: %w", err)
	}
	return normalized, nil
}

// Attach downloads photos for every draft with a photo reference, at most concurrency at a time.
// Drafts whose photo fails keep a nil Photo; the failures are returned in draft order.
func (p *Pipeline) Attach(ctx context.Context, session *legacyclient.Session, drafts []model.UserDraft, concurrency int) []*PhotoError {
	if concurrency <= 0 {
		concurrency = 1
	}

	failures := make([]*PhotoError, len(drafts))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i := range drafts {
		if drafts[i].PhotoURL == "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			img, err := p.DownloadAndNormalize(ctx, drafts[i].PhotoURL, drafts[i].Email, session)
			if err != nil {
				var photoErr *PhotoError
				if !errors.As(err, &photoErr) {
					photoErr = &PhotoError{Owner: drafts[i].Email, URL: drafts[i].PhotoURL, Err: err}
				}
				failures[i] = photoErr
				p.logger.Warn("Photo skipped",
					zap.String("legacy_id", drafts[i].LegacyID),
					zap.String("url", photoErr.URL),
					zap.Error(photoErr.Err))
				return
			}
			drafts[i].Photo = img
		}(i)
	}
	wg.Wait()

	var out []*PhotoError
	for _, f := range failures {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
