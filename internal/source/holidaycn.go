package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

const (
	// DefaultURLTemplate points at the holiday-cn year files; {year} is substituted.
	DefaultURLTemplate = "https://raw.githubusercontent.com/NateScarlet/holiday-cn/master/{year}.json"
	DefaultTimeout     = 15 * time.Second

	maxConcurrentFetches = 4
)

var (
	// ErrFeedUnavailable means a year could be neither downloaded nor read from cache.
	ErrFeedUnavailable = errors.New("statutory feed unavailable")
	// ErrMalformedFeed means the year file did not decode into day records.
	ErrMalformedFeed = errors.New("malformed statutory feed")

	errNotPublished = errors.New("year not published")
)

// feedFile is the holiday-cn JSON layout.
type feedFile struct {
	Year   int      `json:"year"`
	Papers []string `json:"papers"`
	Days   []struct {
		Name     string `json:"name"`
		Date     string `json:"date"`
		IsOffDay *bool  `json:"isOffDay"`
	} `json:"days"`
}

type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads holiday-cn year files with ETag / Last-Modified
// revalidation and a disk cache that is reused when the network fails.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	cacheDir    string
}

// NewFetcher builds a Fetcher. An empty cacheDir disables the disk cache.
func NewFetcher(urlTemplate, cacheDir string, timeout time.Duration) *Fetcher {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		urlTemplate: urlTemplate,
		cacheDir:    cacheDir,
	}
}

// URL returns the feed location for year.
func (f *Fetcher) URL(year int) string {
	return strings.ReplaceAll(f.urlTemplate, "{year}", strconv.Itoa(year))
}

// Records fetches every year concurrently and returns their records in year
// order. A year the feed has not published yet contributes nothing.
func (f *Fetcher) Records(ctx context.Context, years []int) ([]model.StatutoryDayRecord, error) {
	perYear := make([][]model.StatutoryDayRecord, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, year := range years {
		g.Go(func() error {
			recs, err := f.FetchYear(gctx, year)
			if errors.Is(err, errNotPublished) {
				appLog.Warn("statutory year not published", "year", year)
				return nil
			}
			if err != nil {
				return err
			}
			perYear[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.StatutoryDayRecord
	for _, recs := range perYear {
		out = append(out, recs...)
	}
	return out, nil
}

// FetchYear downloads and decodes one year file.
func (f *Fetcher) FetchYear(ctx context.Context, year int) ([]model.StatutoryDayRecord, error) {
	body, err := f.fetch(ctx, f.URL(year))
	if err != nil {
		if errors.Is(err, errNotPublished) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: year %d: %v", ErrFeedUnavailable, year, err)
	}
	recs, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("year %d: %w", year, err)
	}
	return recs, nil
}

// Decode parses a holiday-cn year file.
func Decode(body []byte) ([]model.StatutoryDayRecord, error) {
	var file feedFile
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}
	recs := make([]model.StatutoryDayRecord, 0, len(file.Days))
	for i, d := range file.Days {
		date, err := model.ParseDate(strings.TrimSpace(d.Date))
		if err != nil {
			return nil, fmt.Errorf("%w: day %d: date %q", ErrMalformedFeed, i, d.Date)
		}
		if d.IsOffDay == nil {
			return nil, fmt.Errorf("%w: day %d: missing isOffDay", ErrMalformedFeed, i)
		}
		recs = append(recs, model.StatutoryDayRecord{
			Date:      date,
			Name:      strings.TrimSpace(d.Name),
			IsRestDay: *d.IsOffDay,
		})
	}
	return recs, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	var (
		cachePath  string
		meta       cacheEntry
		cachedBody []byte
	)
	if f.cacheDir != "" {
		cachePath = f.cachePathForURL(url)
		if err := os.MkdirAll(cachePath, 0o700); err != nil {
			return nil, err
		}
		meta, _ = loadCacheMeta(cachePath)
		cachedBody, _ = os.ReadFile(filepath.Join(cachePath, "body.json"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("statutory fetch start", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("statutory fetch network error, using cached body", err, "url", url)
			return cachedBody, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if _, derr := Decode(body); derr != nil {
			// Keep the last good copy; FetchYear reports the bad body when there is none.
			if len(cachedBody) > 0 {
				appLog.Error("statutory fetch returned malformed body, using cached body", derr, "url", url)
				return cachedBody, nil
			}
			return body, nil
		}
		if cachePath != "" {
			newMeta := cacheEntry{
				URL:          url,
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			}
			if err := saveCache(cachePath, newMeta, body); err != nil {
				appLog.Error("statutory cache save failed", err, "url", url)
			}
		}
		appLog.Info("statutory fetch success", "url", url, "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("statutory fetch not modified; using cache", "url", url)
		return cachedBody, nil

	case http.StatusNotFound:
		return nil, errNotPublished

	default:
		if len(cachedBody) > 0 {
			appLog.Error("statutory fetch non-OK, using cached body", errors.New(resp.Status), "url", url)
			return cachedBody, nil
		}
		return nil, errors.New(resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
