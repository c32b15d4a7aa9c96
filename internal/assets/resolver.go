package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
)

// SourceKind tells where asset bytes came from.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

const (
	cacheExtension   = ".zip"
	downloadUA       = "Mozilla/5.0 (compatible; Scoreline-Fetcher/1.0)"
	defaultTimeout   = 30 * time.Second
	defaultMaxSizeMB = 100
)

var catalogIDSanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Asset is deliverable binary content resolved for a purchase. Validated is
// only true when the bytes carry the expected ZIP container header;
// unvalidated bytes are never cached or attached to a notification.
type Asset struct {
	SourceKind SourceKind
	Bytes      []byte
	SizeBytes  int64
	Validated  bool
}

// Resolver finds deliverable assets, preferring a local cache and falling
// back to a bounded remote fetch with format validation.
type Resolver struct {
	cacheDir   string
	httpClient *http.Client
	maxBytes   int64
	logg       *logger.Logger
	pipeline   *metrics.PipelineMetrics
}

// Option configures optional resolver behavior.
type Option func(*Resolver)

// WithHTTPClient overrides the default fetch client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewResolver builds the asset resolver and ensures the cache directory exists.
func NewResolver(cfg config.AssetConfig, logg *logger.Logger, pipeline *metrics.PipelineMetrics, opts ...Option) (*Resolver, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	cacheDir := strings.TrimSpace(cfg.CacheDir)
	if cacheDir == "" {
		return nil, fmt.Errorf("asset cache dir required")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset cache dir %q: %w", cacheDir, err)
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxMB := cfg.MaxDownloadMB
	if maxMB <= 0 {
		maxMB = defaultMaxSizeMB
	}

	resolver := &Resolver{
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   int64(maxMB) * 1024 * 1024,
		logg:       logg,
		pipeline:   pipeline,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	return resolver, nil
}

// GetAsset returns the deliverable for the catalog id, or nil when none is
// available. Attempt order: local cache, then remote fetch of assetReference
// (validated and cached on success). Absence is never an error; notification
// callers degrade to a link instead of an attachment.
func (r *Resolver) GetAsset(ctx context.Context, catalogID, assetReference string) *Asset {
	trimmedID := strings.TrimSpace(catalogID)
	if trimmedID == "" {
		r.pipeline.IncAssetResolution("miss")
		return nil
	}

	if asset := r.readCache(ctx, trimmedID); asset != nil {
		r.pipeline.IncAssetResolution("cache")
		return asset
	}

	ref := strings.TrimSpace(assetReference)
	if isRemoteURL(ref) {
		if asset := r.fetchRemote(ctx, trimmedID, ref); asset != nil {
			r.pipeline.IncAssetResolution("remote")
			return asset
		}
	}

	r.pipeline.IncAssetResolution("miss")
	return nil
}

// CachePath returns the cache file location for a catalog id.
func (r *Resolver) CachePath(catalogID string) string {
	safe := catalogIDSanitizeRe.ReplaceAllString(catalogID, "_")
	return filepath.Join(r.cacheDir, safe+cacheExtension)
}

// CacheStats reports the number of cached assets and their combined size.
func (r *Resolver) CacheStats() (count int, totalBytes int64, err error) {
	entries, err := os.ReadDir(r.cacheDir)
	if err != nil {
		return 0, 0, fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalBytes += info.Size()
	}
	return count, totalBytes, nil
}

func (r *Resolver) readCache(ctx context.Context, catalogID string) *Asset {
	path := r.CachePath(catalogID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logg.Warn(r.logg.WithField(ctx, "path", path), "asset cache read failed: "+err.Error())
		}
		return nil
	}
	if !IsValidZip(data) {
		// stale or corrupted entry, drop it so the next call refetches
		r.logg.Warn(r.logg.WithField(ctx, "path", path), "cached asset failed validation, removing")
		_ = os.Remove(path)
		return nil
	}
	return &Asset{
		SourceKind: SourceLocal,
		Bytes:      data,
		SizeBytes:  int64(len(data)),
		Validated:  true,
	}
}

func (r *Resolver) fetchRemote(ctx context.Context, catalogID, url string) *Asset {
	ctx = r.logg.WithFields(ctx, map[string]any{"catalog_id": catalogID, "url": url})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logg.Warn(ctx, "build asset request failed: "+err.Error())
		return nil
	}
	req.Header.Set("User-Agent", downloadUA)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logg.Warn(ctx, "asset fetch failed: "+err.Error())
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		r.logg.Warn(r.logg.WithField(ctx, "status", resp.StatusCode), "asset origin returned non-200")
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		r.logg.Warn(ctx, "asset body read failed: "+err.Error())
		return nil
	}
	if int64(len(data)) > r.maxBytes {
		r.logg.Warn(ctx, "asset exceeds configured download limit, discarding")
		return nil
	}
	if !IsValidZip(data) {
		r.logg.Warn(ctx, "downloaded asset is not a valid ZIP, discarding")
		return nil
	}

	if err := r.writeCache(catalogID, data); err != nil {
		// cache write failure does not invalidate the fetched bytes
		r.logg.Warn(ctx, "asset cache write failed: "+err.Error())
	}

	return &Asset{
		SourceKind: SourceRemote,
		Bytes:      data,
		SizeBytes:  int64(len(data)),
		Validated:  true,
	}
}

func (r *Resolver) writeCache(catalogID string, data []byte) error {
	path := r.CachePath(catalogID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// IsValidZip reports whether the buffer starts with a ZIP container header
// (PK\x03\x04 for a populated archive, PK\x05\x06 for an empty one).
func IsValidZip(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if data[0] != 0x50 || data[1] != 0x4B {
		return false
	}
	return (data[2] == 0x03 && data[3] == 0x04) || (data[2] == 0x05 && data[3] == 0x06)
}

func isRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
