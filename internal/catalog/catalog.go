package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

const (
	// DefaultStaleAfter is how long a fetched listing is served without refetching.
	DefaultStaleAfter = 5 * time.Minute
	// DefaultPageSize is the listing size used when callers do not choose one.
	DefaultPageSize = 9

	defaultFetchTimeout = 30 * time.Second
)

// Listing sources.
const (
	SourceUpstream    = "upstream"
	SourceCache       = "cache"
	SourceStaleCache  = "stale-cache"
	SourceSnapshot    = "snapshot"
	SourcePlaceholder = "placeholder"
)

// Degraded-mode notices shown to citizens.
const (
	noticeStale       = "Não foi possível atualizar os projetos agora. Exibindo a última lista disponível."
	noticePlaceholder = "Não foi possível carregar os projetos da Câmara. Exibindo projetos de exemplo."
	noticeDetails     = "Não foi possível carregar os detalhes completos deste projeto agora."
)

var errSuperseded = errors.New("fetch superseded by a newer one")

// Fetcher is the upstream side of the catalog. Repository implements it.
type Fetcher interface {
	ListBills(ctx context.Context, pageSize int) ([]bill.Bill, error)
	GetBillDetails(ctx context.Context, id string) (bill.BillDetails, error)
}

// Listing is the bill list served to citizens.
type Listing struct {
	Bills     []bill.Bill `json:"bills"`
	FetchedAt time.Time   `json:"fetchedAt"`
	Source    string      `json:"source"`
	Degraded  bool        `json:"degraded"`
	Notice    string      `json:"notice,omitempty"`
}

// DetailView is a bill detail page, possibly reduced to the listing data when
// the API cannot be reached.
type DetailView struct {
	bill.BillDetails
	Degraded bool   `json:"degraded"`
	Notice   string `json:"notice,omitempty"`
}

type flight struct {
	gen       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	bills     []bill.Bill
	fetchedAt time.Time
	err       error
}

// Config tunes the catalog.
type Config struct {
	StaleAfter      time.Duration
	FetchTimeout    time.Duration
	DefaultPageSize int
}

// Catalog serves listings from cache while fresh, refetches when stale, and
// falls back to stale cache, the last snapshot and finally the placeholder
// bills when the upstream fails. Concurrent requests for one listing share a
// single fetch; Refresh supersedes the fetch in progress.
type Catalog struct {
	fetcher     Fetcher
	cache       Cache
	snapshots   SnapshotStore
	placeholder []bill.Bill
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	flights map[string]*flight
	gens    map[string]uint64

	indexMu sync.RWMutex
	index   map[string]bill.Bill
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache sets the listing cache. Defaults to a MemoryCache.
func WithCache(c Cache) Option {
	return func(cat *Catalog) {
		cat.cache = c
	}
}

// WithSnapshots sets the snapshot store. Defaults to NopSnapshotStore.
func WithSnapshots(s SnapshotStore) Option {
	return func(cat *Catalog) {
		cat.snapshots = s
	}
}

// WithPlaceholder replaces the built-in placeholder bills.
func WithPlaceholder(bills []bill.Bill) Option {
	return func(cat *Catalog) {
		cat.placeholder = bills
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cat *Catalog) {
		cat.logger = l
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(cat *Catalog) {
		cat.now = now
	}
}

// New creates a Catalog over fetcher.
func New(fetcher Fetcher, cfg Config, opts ...Option) (*Catalog, error) {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}

	c := &Catalog{
		fetcher:   fetcher,
		cache:     NewMemoryCache(),
		snapshots: NopSnapshotStore{},
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
		flights:   make(map[string]*flight),
		gens:      make(map[string]uint64),
		index:     make(map[string]bill.Bill),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.placeholder == nil {
		bills, err := PlaceholderBills()
		if err != nil {
			return nil, err
		}
		c.placeholder = bills
	}
	c.logger = c.logger.With("component", "catalog")
	return c, nil
}

// CacheKey is the query key of a listing of pageSize bills.
func CacheKey(pageSize int) string {
	return fmt.Sprintf("bills:%d", pageSize)
}

// List returns the newest pageSize bills. It only fails when ctx is done.
func (c *Catalog) List(ctx context.Context, pageSize int) (Listing, error) {
	return c.list(ctx, pageSize, false)
}

// Refresh refetches the listing even when the cached copy is fresh,
// superseding any fetch already in progress for it.
func (c *Catalog) Refresh(ctx context.Context, pageSize int) (Listing, error) {
	return c.list(ctx, pageSize, true)
}

func (c *Catalog) list(ctx context.Context, pageSize int, force bool) (Listing, error) {
	if pageSize <= 0 {
		pageSize = c.cfg.DefaultPageSize
	}
	key := CacheKey(pageSize)

	cached, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if hit && !force && c.now().Sub(cached.FetchedAt) < c.cfg.StaleAfter {
		c.remember(cached.Bills)
		return Listing{Bills: cached.Bills, FetchedAt: cached.FetchedAt, Source: SourceCache}, nil
	}

	f := c.start(ctx, key, pageSize, force)
	select {
	case <-ctx.Done():
		return Listing{}, ctx.Err()
	case <-f.done:
	}

	if errors.Is(f.err, errSuperseded) {
		// A newer fetch replaced ours; serve whatever it produced.
		return c.list(ctx, pageSize, false)
	}
	if f.err == nil {
		return Listing{Bills: f.bills, FetchedAt: f.fetchedAt, Source: SourceUpstream}, nil
	}

	c.logger.Warn("listing fetch failed, serving fallback", "key", key, "error", f.err)
	return c.fallback(ctx, key, cached, hit), nil
}

// start joins the fetch in progress for key, or launches a new one. With
// replace set, a fetch in progress is cancelled and superseded.
func (c *Catalog) start(ctx context.Context, key string, pageSize int, replace bool) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.flights[key]; ok {
		if !replace {
			return prev
		}
		prev.cancel()
	}

	c.gens[key]++
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
	f := &flight{gen: c.gens[key], cancel: cancel, done: make(chan struct{})}
	c.flights[key] = f

	go c.run(fctx, key, pageSize, f)
	return f
}

func (c *Catalog) run(ctx context.Context, key string, pageSize int, f *flight) {
	defer close(f.done)
	defer f.cancel()

	bills, err := c.fetcher.ListBills(ctx, pageSize)

	c.mu.Lock()
	current := c.gens[key] == f.gen
	if current {
		delete(c.flights, key)
	}
	c.mu.Unlock()

	if !current {
		f.err = errSuperseded
		return
	}
	if err != nil {
		f.err = err
		return
	}

	f.bills = bills
	f.fetchedAt = c.now()
	entry := Entry{Bills: bills, FetchedAt: f.fetchedAt}
	c.remember(bills)

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	if err := c.snapshots.Save(ctx, key, entry); err != nil {
		c.logger.Warn("snapshot save failed", "key", key, "error", err)
	}
}

func (c *Catalog) fallback(ctx context.Context, key string, cached Entry, hit bool) Listing {
	if hit {
		c.remember(cached.Bills)
		return Listing{Bills: cached.Bills, FetchedAt: cached.FetchedAt, Source: SourceStaleCache, Degraded: true, Notice: noticeStale}
	}

	snap, ok, err := c.snapshots.Load(ctx, key)
	if err != nil {
		c.logger.Warn("snapshot load failed", "key", key, "error", err)
	}
	if ok {
		c.remember(snap.Bills)
		return Listing{Bills: snap.Bills, FetchedAt: snap.FetchedAt, Source: SourceSnapshot, Degraded: true, Notice: noticeStale}
	}

	c.remember(c.placeholder)
	return Listing{Bills: c.placeholder, Source: SourcePlaceholder, Degraded: true, Notice: noticePlaceholder}
}

// remember indexes bills by ID for Bill lookups.
func (c *Catalog) remember(bills []bill.Bill) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	for _, b := range bills {
		c.index[b.ID] = b
	}
}

func (c *Catalog) lookup(id string) (bill.Bill, bool) {
	c.indexMu.RLock()
	defer c.indexMu.RUnlock()
	b, ok := c.index[id]
	return b, ok
}

// Bill returns a bill of a listing already served, loading the default
// listing first when the catalog has not served any yet.
func (c *Catalog) Bill(ctx context.Context, id string) (bill.Bill, error) {
	if b, ok := c.lookup(id); ok {
		return b, nil
	}
	if _, err := c.List(ctx, c.cfg.DefaultPageSize); err != nil {
		return bill.Bill{}, err
	}
	if b, ok := c.lookup(id); ok {
		return b, nil
	}
	return bill.Bill{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Details returns the detail page of a bill. Points come from the listing the
// bill appeared in. When the API fails for a bill the catalog already knows,
// the listing data is served as a degraded detail page.
func (c *Catalog) Details(ctx context.Context, id string) (DetailView, error) {
	d, err := c.fetcher.GetBillDetails(ctx, id)
	known, ok := c.lookup(id)

	if err != nil {
		if !ok {
			return DetailView{}, err
		}
		c.logger.Warn("details fetch failed, serving listing data", "bill_id", id, "error", err)
		return DetailView{
			BillDetails: bill.BillDetails{Bill: known, Tramitacoes: []bill.Tramitacao{}},
			Degraded:    true,
			Notice:      noticeDetails,
		}, nil
	}

	if ok {
		d.Points = known.Points
	}
	return DetailView{BillDetails: d}, nil
}
