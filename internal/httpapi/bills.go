package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/catalog"
	"github.com/cidadao-ativo/cidadao-api/internal/export"
	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

// Option is a selectable filter value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ListResponse is the body of GET /bills.
type ListResponse struct {
	Bills      []bill.Bill           `json:"bills"`
	Total      int                   `json:"total"`
	Filters    session.Filters       `json:"filters"`
	FetchedAt  time.Time             `json:"fetchedAt"`
	Source     string                `json:"source"`
	Degraded   bool                  `json:"degraded"`
	Notice     string                `json:"notice,omitempty"`
	Categories []Option              `json:"categories"`
	Statuses   []Option              `json:"statuses"`
	Counts     map[bill.Category]int `json:"counts"`
}

// ShareResponse is the body of GET /bills/{id}/share.
type ShareResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

func categoryOptions() []Option {
	out := []Option{{Value: string(bill.CategoryAll), Label: bill.CategoryAll.Label()}}
	for _, c := range bill.Categories() {
		out = append(out, Option{Value: string(c), Label: c.Label()})
	}
	return out
}

func statusOptions() []Option {
	out := []Option{{Value: string(bill.StatusAll), Label: bill.StatusAll.Label()}}
	for _, st := range bill.Statuses() {
		out = append(out, Option{Value: string(st), Label: st.Label()})
	}
	return out
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	s.serveListing(w, r, false)
}

func (s *Server) handleRefreshBills(w http.ResponseWriter, r *http.Request) {
	s.serveListing(w, r, true)
}

func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, refresh bool) {
	pageSize, ok := s.pageSizeParam(w, r)
	if !ok {
		return
	}
	filters, err := s.filtersParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	load := s.catalog.List
	if refresh {
		load = s.catalog.Refresh
	}
	listing, err := load(r.Context(), pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Bills:      filters.Apply(listing.Bills),
		Total:      len(listing.Bills),
		Filters:    filters,
		FetchedAt:  listing.FetchedAt,
		Source:     listing.Source,
		Degraded:   listing.Degraded,
		Notice:     listing.Notice,
		Categories: categoryOptions(),
		Statuses:   statusOptions(),
		Counts:     bill.CountByCategory(listing.Bills),
	})
}

func (s *Server) handleExportBills(w http.ResponseWriter, r *http.Request) {
	pageSize, ok := s.pageSizeParam(w, r)
	if !ok {
		return
	}
	filters, err := s.filtersParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	listing, err := s.catalog.List(r.Context(), pageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteBills(&buf, filters.Apply(listing.Bills)); err != nil {
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Não foi possível gerar a planilha.")
		return
	}

	fetchedAt := listing.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(fetchedAt)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleBillDetails(w http.ResponseWriter, r *http.Request) {
	view, err := s.catalog.Details(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleShareBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.catalog.Bill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{URL: bill.ShareURL(b), Message: bill.ShareMessage(b)})
}

func (s *Server) pageSizeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("pageSize")
	if v == "" {
		return s.pageSize, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize))
		return 0, false
	}
	return n, true
}

// filtersParam starts from the filters of the ?session= session, when given,
// and applies explicit ?category= and ?status= values on top.
func (s *Server) filtersParam(r *http.Request) (session.Filters, error) {
	q := r.URL.Query()
	filters := session.DefaultFilters()

	if id := q.Get("session"); id != "" {
		sess, err := s.engine.Snapshot(r.Context(), id)
		if err != nil {
			return session.Filters{}, err
		}
		filters = sess.Filters
	}
	if c := q.Get("category"); c != "" {
		if err := filters.SetCategory(bill.Category(c)); err != nil {
			return session.Filters{}, err
		}
	}
	if st := q.Get("status"); st != "" {
		if err := filters.SetStatus(bill.Status(st)); err != nil {
			return session.Filters{}, err
		}
	}
	return filters, nil
}

var _ Catalog = (*catalog.Catalog)(nil)
