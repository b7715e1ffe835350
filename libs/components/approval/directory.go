package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/matapang/platform/libs/shared/errs"
	"github.com/matapang/platform/libs/shared/observability"
)

// Approver is the identity shown for an approval level.
type Approver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position,omitempty"`
}

// Directory resolves approver references.
type Directory interface {
	Lookup(ctx context.Context, id string) (Approver, error)
}

// CachedDirectory keeps successful lookups for a bounded time in a bounded
// LRU. Failures are not cached.
type CachedDirectory struct {
	next  Directory
	cache *expirable.LRU[string, Approver]
}

// NewCachedDirectory wraps next with a cache of at most size entries that
// expire after ttl.
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = 256
	}
	return &CachedDirectory{
		next:  next,
		cache: expirable.NewLRU[string, Approver](size, nil, ttl),
	}
}

// Lookup serves from the cache or delegates.
func (d *CachedDirectory) Lookup(ctx context.Context, id string) (Approver, error) {
	if a, ok := d.cache.Get(id); ok {
		observability.ApproverLookups.WithLabelValues("hit").Inc()
		return a, nil
	}

	a, err := d.next.Lookup(ctx, id)
	if err != nil {
		observability.ApproverLookups.WithLabelValues("error").Inc()
		return Approver{}, err
	}
	observability.ApproverLookups.WithLabelValues("miss").Inc()
	d.cache.Add(id, a)
	return a, nil
}

// Forget drops one cached approver.
func (d *CachedDirectory) Forget(id string) {
	d.cache.Remove(id)
}

// Len reports the number of cached approvers.
func (d *CachedDirectory) Len() int {
	return d.cache.Len()
}

// HTTPDirectory reads approvers from the identity service. Calls are bounded
// by the client timeout and never retried.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPDirectory builds a directory for the identity service at baseURL.
func NewHTTPDirectory(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPDirectory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type userEnvelope struct {
	Data Approver `json:"data"`
}

// Lookup fetches GET {base}/users/{id}.
func (d *HTTPDirectory) Lookup(ctx context.Context, id string) (Approver, error) {
	endpoint := d.baseURL + "/users/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Approver{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("approver lookup failed", zap.String("approver_id", id), zap.Error(err))
		return Approver{}, fmt.Errorf("approval: lookup %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Approver{}, fmt.Errorf("approval: approver %s: %w", id, errs.ErrNotFound)
	case resp.StatusCode >= 300:
		return Approver{}, fmt.Errorf("approval: lookup %s: identity service returned %d", id, resp.StatusCode)
	}

	var env userEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Approver{}, fmt.Errorf("approval: decode approver %s: %w", id, err)
	}
	if env.Data.ID == "" {
		env.Data.ID = id
	}
	return env.Data, nil
}

// StaticDirectory serves approvers from memory.
type StaticDirectory map[string]Approver

// Lookup returns the stored approver or ErrNotFound.
func (d StaticDirectory) Lookup(_ context.Context, id string) (Approver, error) {
	if a, ok := d[id]; ok {
		return a, nil
	}
	return Approver{}, errs.ErrNotFound
}
