// Package catalog assembles bills from the Câmara API and keeps them available
// when the API is slow or down.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/camara"
)

// DetailRollCallLimit caps how many roll-calls the detail view aggregates.
const DetailRollCallLimit = 3

// ErrNotFound is returned for bills neither the API nor the catalog knows.
var ErrNotFound = errors.New("bill not found")

// Source is the upstream the repository reads from. camara.Client implements it.
type Source interface {
	ListProposicoes(ctx context.Context, params camara.ListParams) ([]bill.Record, error)
	GetProposicao(ctx context.Context, id int64) (bill.Record, error)
	ListVotacoes(ctx context.Context, id int64) ([]bill.RollCall, error)
	ListVotos(ctx context.Context, votacaoID string) ([]bill.VoterEntry, error)
	ListTramitacoes(ctx context.Context, id int64) ([]bill.Tramitacao, error)
}

// QuizLookup finds the authored quiz of a bill.
type QuizLookup interface {
	Quiz(billID string) (bill.Quiz, bool)
}

// RepositoryConfig tunes how the listing is fetched.
type RepositoryConfig struct {
	SiglaTipo string
	// Year of the listed propositions; 0 means the current year.
	Year         int
	Concurrency  int
	Retries      int
	RetryBackoff time.Duration
}

func (c RepositoryConfig) withDefaults() RepositoryConfig {
	if c.SiglaTipo == "" {
		c.SiglaTipo = "PL"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// Repository turns upstream records into bills.
type Repository struct {
	source     Source
	cfg        RepositoryConfig
	normalizer *bill.Normalizer
	quizzes    QuizLookup
	logger     *slog.Logger
	now        func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *bill.Normalizer) RepositoryOption {
	return func(r *Repository) {
		r.normalizer = n
	}
}

// WithQuizzes attaches authored quizzes by bill ID.
func WithQuizzes(q QuizLookup) RepositoryOption {
	return func(r *Repository) {
		r.quizzes = q
	}
}

// WithRepositoryLogger sets the logger.
func WithRepositoryLogger(l *slog.Logger) RepositoryOption {
	return func(r *Repository) {
		r.logger = l
	}
}

// NewRepository creates a Repository reading from source.
func NewRepository(source Source, cfg RepositoryConfig, opts ...RepositoryOption) *Repository {
	r := &Repository{
		source:     source,
		cfg:        cfg.withDefaults(),
		normalizer: bill.NewNormalizer(),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "catalog")
	return r
}

// ListBills fetches the newest pageSize propositions as listing-card bills.
// Only the listing request itself is fatal; a record whose details cannot be
// fetched is dropped and a record whose votes cannot be fetched keeps
// placeholder totals.
func (r *Repository) ListBills(ctx context.Context, pageSize int) ([]bill.Bill, error) {
	year := r.cfg.Year
	if year == 0 {
		year = r.now().Year()
	}
	params := camara.ListParams{
		SiglaTipo:  r.cfg.SiglaTipo,
		Ano:        year,
		Itens:      pageSize,
		OrdenarPor: "id",
		Ordem:      "DESC",
	}

	records, err := r.listWithRetry(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list proposicoes: %w", err)
	}

	results := make([]bill.Result, len(records))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, rec := range records {
		g.Go(func() error {
			results[i] = r.summarize(ctx, rec, i)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bills := bill.Collect(results, r.logger)
	r.logger.Info("bills fetched", "requested", pageSize, "listed", len(records), "kept", len(bills))
	return bills, nil
}

func (r *Repository) listWithRetry(ctx context.Context, params camara.ListParams) ([]bill.Record, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.cfg.RetryBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(r.cfg.Retries)), ctx)

	op := func() ([]bill.Record, error) {
		records, err := r.source.ListProposicoes(ctx, params)
		if err == nil {
			return records, nil
		}
		var schemaErr *camara.SchemaError
		if errors.Is(err, camara.ErrNotFound) || errors.As(err, &schemaErr) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("listing fetch failed, retrying", "error", err, "backoff", wait)
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}

func (r *Repository) summarize(ctx context.Context, listed bill.Record, index int) bill.Result {
	rec, err := r.source.GetProposicao(ctx, listed.ID)
	if err != nil {
		return bill.Result{RecordID: listed.ID, Err: fmt.Errorf("fetch details: %w", err)}
	}
	rec.Quiz = r.authoredQuiz(rec.ID)

	b, err := r.normalizer.Summary(rec, r.latestVotes(ctx, rec.ID), index)
	return bill.Result{RecordID: rec.ID, Bill: b, Err: err}
}

// latestVotes returns the newest roll-call with its votes, or nil when there
// is none or it cannot be fetched.
func (r *Repository) latestVotes(ctx context.Context, id int64) []bill.RollCall {
	rollCalls, err := r.source.ListVotacoes(ctx, id)
	if err != nil {
		r.logger.Debug("roll-calls unavailable", "record_id", id, "error", err)
		return nil
	}
	latest, ok := bill.LatestRollCall(rollCalls)
	if !ok {
		return nil
	}
	votes, err := r.source.ListVotos(ctx, latest.ID)
	if err != nil {
		r.logger.Debug("votes unavailable", "record_id", id, "votacao_id", latest.ID, "error", err)
		return nil
	}
	latest.Votes = votes
	return []bill.RollCall{latest}
}

// GetBillDetails fetches the detail-page view of one bill. Failing to fetch the
// proposition is fatal; a missing timeline or roll-call degrades to empty.
func (r *Repository) GetBillDetails(ctx context.Context, id string) (bill.BillDetails, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return bill.BillDetails{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	rec, err := r.source.GetProposicao(ctx, n)
	if err != nil {
		if errors.Is(err, camara.ErrNotFound) {
			return bill.BillDetails{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bill.BillDetails{}, fmt.Errorf("fetch details: %w", err)
	}
	rec.Quiz = r.authoredQuiz(rec.ID)

	var (
		timeline  []bill.Tramitacao
		rollCalls []bill.RollCall
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.source.ListTramitacoes(gctx, n)
		if err != nil {
			r.logger.Warn("timeline unavailable", "record_id", n, "error", err)
			return nil
		}
		timeline = t
		return nil
	})
	g.Go(func() error {
		rollCalls = r.detailVotes(gctx, n)
		return nil
	})
	_ = g.Wait()

	return r.normalizer.Details(rec, rollCalls, timeline)
}

// detailVotes fetches the votes of the first DetailRollCallLimit roll-calls,
// keeping upstream order. Roll-calls whose votes fail are skipped.
func (r *Repository) detailVotes(ctx context.Context, id int64) []bill.RollCall {
	rollCalls, err := r.source.ListVotacoes(ctx, id)
	if err != nil {
		r.logger.Debug("roll-calls unavailable", "record_id", id, "error", err)
		return nil
	}
	if len(rollCalls) > DetailRollCallLimit {
		rollCalls = rollCalls[:DetailRollCallLimit]
	}

	ok := make([]bool, len(rollCalls))
	var g errgroup.Group
	for i := range rollCalls {
		g.Go(func() error {
			votes, err := r.source.ListVotos(ctx, rollCalls[i].ID)
			if err != nil {
				r.logger.Debug("votes unavailable", "votacao_id", rollCalls[i].ID, "error", err)
				return nil
			}
			rollCalls[i].Votes = votes
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]bill.RollCall, 0, len(rollCalls))
	for i, rc := range rollCalls {
		if ok[i] {
			out = append(out, rc)
		}
	}
	return out
}

func (r *Repository) authoredQuiz(id int64) *bill.Quiz {
	if r.quizzes == nil {
		return nil
	}
	q, ok := r.quizzes.Quiz(strconv.FormatInt(id, 10))
	if !ok {
		return nil
	}
	return &q
}
