// Package explore answers a free-text query end to end: route it to the
// nearest clusters, build a keyword tree over each cluster's papers, and
// memoize the response in the tree cache.
package explore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matsen/searchforest/internal/cluster"
	"github.com/matsen/searchforest/internal/logger"
	"github.com/matsen/searchforest/internal/tree"
)

// Errors returned by the service.
var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrNotCached  = errors.New("no cached result for query")
)

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = time.Hour

// Router maps a query to clusters.
type Router interface {
	Route(ctx context.Context, query string, topK int) ([]cluster.Hit, error)
}

// Builder builds one keyword tree.
type Builder interface {
	Build(ctx context.Context, req tree.Request) (*tree.Result, error)
}

// Cache stores serialized responses by key.
type Cache interface {
	GetCachedTree(key string, ttl time.Duration, now time.Time) ([]byte, bool, error)
	PutCachedTree(key string, payload []byte, now time.Time) error
}

// Request is one exploration.
type Request struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	K1       int    `json:"k1"`
	K2       int    `json:"k2"`
	PIDLimit int    `json:"pid_limit"`
}

// ClusterTree is the tree built for one routed cluster.
type ClusterTree struct {
	ClusterID  int          `json:"cluster_id"`
	Similarity float64      `json:"similarity"`
	Size       int          `json:"size"`
	Keywords   []string     `json:"keywords"`
	Result     *tree.Result `json:"result"`
}

// Response is the outcome of Explore.
type Response struct {
	Query    string        `json:"query"`
	Clusters []ClusterTree `json:"clusters"`
	// KeywordPapers merges every cluster's index.
	KeywordPapers tree.KeywordPapers `json:"kw2pids"`
	Cached        bool               `json:"cached"`
}

// Service wires the router, cluster table, and tree builder together.
type Service struct {
	router   Router
	table    *cluster.Table
	builder  Builder
	fallback Builder
	cache    Cache
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache memoizes responses in c for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithFallback sets the builder used when the primary build fails in its
// backfill step, typically the same builder without a searcher.
func WithFallback(b Builder) Option {
	return func(s *Service) {
		s.fallback = b
	}
}

// WithClock overrides time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a service.
func New(router Router, table *cluster.Table, builder Builder, opts ...Option) *Service {
	s := &Service{
		router:  router,
		table:   table,
		builder: builder,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey identifies a request in the tree cache.
func CacheKey(req Request) string {
	raw := fmt.Sprintf("%s|%d|%d|%d|%d", req.Query, req.TopK, req.K1, req.K2, req.PIDLimit)
	sum := sha256.Sum256([]byte(raw))
	return "graph:" + hex.EncodeToString(sum[:])
}

// Explore returns the cached response for req when fresh, and otherwise
// builds it. Concurrent misses for the same key share one build. A failed
// cache write is logged and does not fail the call.
func (s *Service) Explore(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	key := CacheKey(req)

	if resp, ok := s.lookup(key); ok {
		logger.Debug("tree cache hit", "key", key)
		return resp, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		resp, err := s.explore(ctx, req)
		if err != nil {
			return nil, err
		}
		s.store(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("joined in-flight build", "key", key)
	}
	return v.(*Response), nil
}

// KeywordPapers returns the merged keyword index of a cached response
// without building anything. It only needs the cache, so a Service created
// with nil router, table, and builder can serve it.
func (s *Service) KeywordPapers(req Request) (tree.KeywordPapers, error) {
	resp, ok := s.lookup(CacheKey(req))
	if !ok {
		return nil, ErrNotCached
	}
	return resp.KeywordPapers, nil
}

func (s *Service) explore(ctx context.Context, req Request) (*Response, error) {
	hits, err := s.router.Route(ctx, req.Query, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("routing query: %w", err)
	}

	resp := &Response{Query: req.Query, Clusters: []ClusterTree{}}
	for _, hit := range hits {
		c, err := s.table.Get(hit.ClusterID)
		if err != nil {
			return nil, err
		}
		if len(c.PaperIDs) == 0 {
			logger.Warn("skipping cluster without papers", "cluster", c.ID)
			continue
		}

		res, err := s.build(ctx, tree.Request{
			RootContext:  req.Query,
			RootPaperIDs: c.PaperIDs,
			K1:           req.K1,
			K2:           req.K2,
			PIDLimit:     req.PIDLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("building tree for cluster %d: %w", c.ID, err)
		}
		resp.Clusters = append(resp.Clusters, ClusterTree{
			ClusterID:  c.ID,
			Similarity: hit.Similarity,
			Size:       c.Size,
			Keywords:   c.Keywords,
			Result:     res,
		})
	}
	resp.KeywordPapers = mergeKeywordPapers(resp.Clusters, req.PIDLimit)
	return resp, nil
}

func (s *Service) build(ctx context.Context, req tree.Request) (*tree.Result, error) {
	res, err := s.builder.Build(ctx, req)
	if err == nil || s.fallback == nil || !tree.IsBackfillError(err) {
		return res, err
	}
	logger.Warn("vector search backfill failed, rebuilding without it", "err", err)
	return s.fallback.Build(ctx, req)
}

func (s *Service) lookup(key string) (*Response, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, ok, err := s.cache.GetCachedTree(key, s.ttl, s.now())
	if err != nil {
		logger.Warn("tree cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		logger.Warn("discarding unreadable cache entry", "key", key, "err", err)
		return nil, false
	}
	resp.Cached = true
	return &resp, true
}

func (s *Service) store(key string, resp *Response) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		logger.Warn("encoding response for cache", "key", key, "err", err)
		return
	}
	if err := s.cache.PutCachedTree(key, payload, s.now()); err != nil {
		logger.Warn("tree cache write failed", "key", key, "err", err)
	}
}

// mergeKeywordPapers unions the per-cluster indexes. A paper listed under
// the same keyword by several clusters keeps its best score; each list is
// re-sorted and capped at limit.
func mergeKeywordPapers(trees []ClusterTree, limit int) tree.KeywordPapers {
	best := make(map[string]map[string]float64)
	for _, ct := range trees {
		for kw, list := range ct.Result.KeywordPapers {
			if best[kw] == nil {
				best[kw] = make(map[string]float64)
			}
			for _, ps := range list {
				if cur, ok := best[kw][ps.PaperID]; !ok || ps.Score > cur {
					best[kw][ps.PaperID] = ps.Score
				}
			}
		}
	}

	out := make(tree.KeywordPapers, len(best))
	for kw, scores := range best {
		list := make([]tree.PaperScore, 0, len(scores))
		for id, score := range scores {
			list = append(list, tree.PaperScore{PaperID: id, Score: score})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Score != list[j].Score {
				return list[i].Score > list[j].Score
			}
			return list[i].PaperID < list[j].PaperID
		})
		if limit > 0 && len(list) > limit {
			list = list[:limit]
		}
		out[kw] = list
	}
	return out
}
