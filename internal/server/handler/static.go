package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/kkmgate/internal/core/domain"
	"github.com/yndnr/kkmgate/internal/storage/respcache"
	"github.com/yndnr/kkmgate/internal/telemetry/metric"
)

// MaxStaticSize is the largest file the static handler serves.
const MaxStaticSize = 16 << 20

const cacheKindStatic = "static"

// Static serves files below a root directory.
//
// Files are cached whole. Every hit re-stats the file and reloads it when its
// modification time is newer than the cached copy.
type Static struct {
	root    *os.Root
	index   string
	cache   *respcache.Cache
	ttl     time.Duration
	metrics *metric.Registry
	now     func() time.Time
}

// NewStatic opens dir as the static root. An empty dir yields a handler that
// answers 404 for everything. metrics may be nil.
func NewStatic(dir, index string, cache *respcache.Cache, ttl time.Duration, metrics *metric.Registry) (*Static, error) {
	h := &Static{
		index:   index,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
	if dir == "" {
		return h, nil
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open static root: %w", err)
	}
	h.root = root
	return h, nil
}

// Close releases the root directory.
func (h *Static) Close() error {
	if h.root == nil {
		return nil
	}
	return h.root.Close()
}

func (h *Static) Name() string   { return "static" }
func (h *Static) Blocking() bool { return false }

func (h *Static) Handle(_ context.Context, req *domain.Request) error {
	if err := requireMethod(req, domain.MethodGet); err != nil {
		return err
	}
	if h.root == nil {
		return domain.ErrNotFound.WithDetail("static files disabled")
	}

	segs := segments(req.Path)
	rel := h.index
	if len(segs) > 1 {
		rel = strings.Join(segs[1:], "/")
	}
	if rel == "" || !filepath.IsLocal(filepath.FromSlash(rel)) {
		return domain.ErrNotFound.WithDetail("%s", req.Path)
	}

	fi, err := h.root.Stat(rel)
	if err == nil && fi.IsDir() && h.index != "" {
		rel = path.Join(rel, h.index)
		fi, err = h.root.Stat(rel)
	}
	if err != nil || fi.IsDir() {
		return domain.ErrNotFound.WithDetail("%s", req.Path)
	}

	key := respcache.StaticKey(rel)
	h.cache.Maintain()
	if e, ok := h.cache.Load(key); ok {
		if !fi.ModTime().After(e.CachedAt) {
			h.count(metric.CacheHit)
			req.Response.SetPayload(e.Payload)
			return nil
		}
		h.count(metric.CacheStale)
	} else {
		h.count(metric.CacheMiss)
	}

	p, err := h.load(rel, fi)
	if err != nil {
		return err
	}
	h.cache.Store(key, h.now().Add(h.ttl), domain.StatusOK, p, 0)
	req.Response.SetPayload(p)
	return nil
}

func (h *Static) load(rel string, fi fs.FileInfo) (*domain.Binary, error) {
	if fi.Size() > MaxStaticSize {
		return nil, domain.ErrNotFound.WithDetail("%s: file too large", rel)
	}
	f, err := h.root.Open(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound.WithDetail("%s", rel)
		}
		return nil, domain.ErrInternal.WithCause(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxStaticSize))
	if err != nil {
		return nil, domain.ErrInternal.WithCause(err)
	}
	return domain.NewBinary(data, mimeOf(rel), fi.ModTime()), nil
}

func (h *Static) count(result string) {
	if h.metrics != nil {
		h.metrics.CacheLookups.WithLabelValues(cacheKindStatic, result).Inc()
	}
}

func mimeOf(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return domain.MIMEBinary
}
