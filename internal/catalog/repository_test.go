package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/camara"
	"github.com/cidadao-ativo/cidadao-api/internal/catalog"
)

var errUpstream = errors.New("upstream unavailable")

type fakeSource struct {
	mu sync.Mutex

	listing      []bill.Record
	listFailures int // number of ListProposicoes calls that fail first
	listCalls    atomic.Int32
	lastParams   camara.ListParams

	details     map[int64]bill.Record
	rollCalls   map[int64][]bill.RollCall
	votes       map[string][]bill.VoterEntry
	timeline    map[int64][]bill.Tramitacao
	failDetails map[int64]bool
	failVotes   map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		details:     map[int64]bill.Record{},
		rollCalls:   map[int64][]bill.RollCall{},
		votes:       map[string][]bill.VoterEntry{},
		timeline:    map[int64][]bill.Tramitacao{},
		failDetails: map[int64]bool{},
		failVotes:   map[string]bool{},
	}
}

func (f *fakeSource) addRecord(id int64, ementa, situacao string) {
	rec := bill.Record{ID: id, SiglaTipo: "PL", Numero: int(id), Ano: 2025, Ementa: ementa, DescricaoSituacao: situacao}
	f.listing = append(f.listing, bill.Record{ID: id, SiglaTipo: "PL", Numero: int(id), Ano: 2025})
	f.details[id] = rec
}

func (f *fakeSource) ListProposicoes(_ context.Context, p camara.ListParams) ([]bill.Record, error) {
	n := f.listCalls.Add(1)
	f.mu.Lock()
	f.lastParams = p
	f.mu.Unlock()
	if int(n) <= f.listFailures {
		return nil, errUpstream
	}
	return f.listing, nil
}

func (f *fakeSource) GetProposicao(_ context.Context, id int64) (bill.Record, error) {
	if f.failDetails[id] {
		return bill.Record{}, errUpstream
	}
	rec, ok := f.details[id]
	if !ok {
		return bill.Record{}, &camara.StatusError{StatusCode: 404, Path: "/proposicoes/" + strconv.FormatInt(id, 10)}
	}
	return rec, nil
}

func (f *fakeSource) ListVotacoes(_ context.Context, id int64) ([]bill.RollCall, error) {
	return append([]bill.RollCall(nil), f.rollCalls[id]...), nil
}

func (f *fakeSource) ListVotos(_ context.Context, votacaoID string) ([]bill.VoterEntry, error) {
	if f.failVotes[votacaoID] {
		return nil, errUpstream
	}
	return f.votes[votacaoID], nil
}

func (f *fakeSource) ListTramitacoes(_ context.Context, id int64) ([]bill.Tramitacao, error) {
	return f.timeline[id], nil
}

func voter(id int64, vote string) bill.VoterEntry {
	return bill.VoterEntry{VoteValue: vote, Voter: bill.Voter{ID: id, Name: "Dep " + strconv.FormatInt(id, 10)}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(src catalog.Source, opts ...catalog.RepositoryOption) *catalog.Repository {
	opts = append([]catalog.RepositoryOption{catalog.WithRepositoryLogger(quietLogger())}, opts...)
	return catalog.NewRepository(src, catalog.RepositoryConfig{
		Year:         2025,
		Concurrency:  3,
		Retries:      2,
		RetryBackoff: time.Millisecond,
	}, opts...)
}

func TestRepository_ListBills(t *testing.T) {
	src := newFakeSource()
	src.addRecord(30, "Cria hospital regional", "Aguardando Parecer")
	src.addRecord(20, "Reforma do ensino médio", "Aprovada")
	src.addRecord(10, "Denomina rodovia", "Arquivada")

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src.rollCalls[20] = []bill.RollCall{
		{ID: "20-old", RegisteredAt: now.Add(-time.Hour)},
		{ID: "20-new", RegisteredAt: now},
	}
	src.votes["20-new"] = []bill.VoterEntry{voter(1, "Sim"), voter(2, "Sim"), voter(3, "Não")}
	src.votes["20-old"] = []bill.VoterEntry{voter(9, "Não")}

	bills, err := newRepo(src).ListBills(t.Context(), 3)
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}

	if len(bills) != 3 {
		t.Fatalf("len(bills) = %d, want 3", len(bills))
	}
	wantIDs := []string{"30", "20", "10"}
	for i, b := range bills {
		if b.ID != wantIDs[i] {
			t.Errorf("bills[%d].ID = %s, want %s", i, b.ID, wantIDs[i])
		}
		if want := (i + 1) * 25; b.Points != want {
			t.Errorf("bills[%d].Points = %d, want %d", i, b.Points, want)
		}
	}

	if bills[0].Category != bill.CategoryHealth || bills[1].Category != bill.CategoryEducation {
		t.Errorf("categories = %s, %s", bills[0].Category, bills[1].Category)
	}
	if bills[1].Status != bill.StatusApproved || bills[2].Status != bill.StatusRejected {
		t.Errorf("statuses = %s, %s", bills[1].Status, bills[2].Status)
	}
	if bills[1].VotesYes != 2 || bills[1].VotesNo != 1 {
		t.Errorf("bill 20 votes = %d/%d, want 2/1 from latest roll-call", bills[1].VotesYes, bills[1].VotesNo)
	}
	if !bills[0].Representatives[0].IsPlaceholder() {
		t.Error("bill without roll-call should carry placeholder representative")
	}

	if src.lastParams.Ano != 2025 || src.lastParams.Itens != 3 || src.lastParams.Ordem != "DESC" || src.lastParams.OrdenarPor != "id" {
		t.Errorf("params = %+v", src.lastParams)
	}
}

func TestRepository_ListBills_PartialFailure(t *testing.T) {
	src := newFakeSource()
	src.addRecord(3, "a", "")
	src.addRecord(2, "b", "")
	src.addRecord(1, "c", "")
	src.failDetails[2] = true
	src.rollCalls[1] = []bill.RollCall{{ID: "1-a"}}
	src.failVotes["1-a"] = true

	bills, err := newRepo(src).ListBills(t.Context(), 3)
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("len(bills) = %d, want 2 (detail failure dropped)", len(bills))
	}
	if bills[0].ID != "3" || bills[1].ID != "1" {
		t.Errorf("ids = %s, %s, want 3, 1", bills[0].ID, bills[1].ID)
	}
	// Position in the batch still drives points.
	if bills[1].Points != 75 {
		t.Errorf("bills[1].Points = %d, want 75", bills[1].Points)
	}
	if !bills[1].Representatives[0].IsPlaceholder() {
		t.Error("vote failure should leave placeholder representatives")
	}
}

func TestRepository_ListBills_RetriesListing(t *testing.T) {
	src := newFakeSource()
	src.addRecord(1, "a", "")
	src.listFailures = 2

	bills, err := newRepo(src).ListBills(t.Context(), 1)
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}
	if len(bills) != 1 {
		t.Errorf("len(bills) = %d, want 1", len(bills))
	}
	if got := src.listCalls.Load(); got != 3 {
		t.Errorf("listing calls = %d, want 3", got)
	}
}

func TestRepository_ListBills_ListingFatal(t *testing.T) {
	src := newFakeSource()
	src.listFailures = 10

	_, err := newRepo(src).ListBills(t.Context(), 1)
	if !errors.Is(err, errUpstream) {
		t.Errorf("ListBills() error = %v, want upstream error", err)
	}
	if got := src.listCalls.Load(); got != 3 {
		t.Errorf("listing calls = %d, want 1 + 2 retries", got)
	}
}

func TestRepository_AuthoredQuiz(t *testing.T) {
	src := newFakeSource()
	src.addRecord(5, "Cria programa", "")

	bank := catalog.NewQuizBank()
	bank.Add("5", bill.Quiz{
		Question:      "Pergunta autoral?",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: 3,
		Explanation:   "d",
	})

	bills, err := newRepo(src, catalog.WithQuizzes(bank)).ListBills(t.Context(), 1)
	if err != nil {
		t.Fatalf("ListBills() error = %v", err)
	}
	if bills[0].Quiz.Question != "Pergunta autoral?" || bills[0].Quiz.CorrectAnswer != 3 {
		t.Errorf("Quiz = %+v, want authored quiz", bills[0].Quiz)
	}
}

func TestRepository_GetBillDetails(t *testing.T) {
	src := newFakeSource()
	src.addRecord(7, "Institui o Dia Nacional", "Aprovado")
	src.rollCalls[7] = []bill.RollCall{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	src.votes["a"] = []bill.VoterEntry{voter(1, "Sim")}
	src.votes["b"] = []bill.VoterEntry{voter(1, "Não"), voter(2, "Sim")}
	src.votes["c"] = []bill.VoterEntry{voter(3, "Não")}
	src.votes["d"] = []bill.VoterEntry{voter(4, "Sim")}
	src.timeline[7] = []bill.Tramitacao{
		{DataHora: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Sequencia: 1},
		{DataHora: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Sequencia: 2},
	}

	d, err := newRepo(src).GetBillDetails(t.Context(), "7")
	if err != nil {
		t.Fatalf("GetBillDetails() error = %v", err)
	}

	// Roll-call "d" is beyond the limit.
	if d.VotesYes != 2 || d.VotesNo != 2 {
		t.Errorf("votes = %d/%d, want 2/2", d.VotesYes, d.VotesNo)
	}
	if len(d.Representatives) != 3 {
		t.Errorf("len(Representatives) = %d, want 3", len(d.Representatives))
	}
	if d.Tramitacoes[0].Sequencia != 2 {
		t.Errorf("timeline not newest first: %+v", d.Tramitacoes)
	}
	if d.OriginalText != "Institui o Dia Nacional" {
		t.Errorf("OriginalText = %q, want raw ementa", d.OriginalText)
	}
}

func TestRepository_GetBillDetails_NotFound(t *testing.T) {
	repo := newRepo(newFakeSource())

	for _, id := range []string{"999", "abc", "-1"} {
		if _, err := repo.GetBillDetails(t.Context(), id); !errors.Is(err, catalog.ErrNotFound) {
			t.Errorf("GetBillDetails(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestRepository_GetBillDetails_UpstreamDown(t *testing.T) {
	src := newFakeSource()
	src.addRecord(8, "x", "")
	src.failDetails[8] = true

	_, err := newRepo(src).GetBillDetails(t.Context(), "8")
	if !errors.Is(err, errUpstream) {
		t.Errorf("GetBillDetails() error = %v, want upstream error", err)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		t.Error("upstream failure should not look like not found")
	}
}
