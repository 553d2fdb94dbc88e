package bill_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

func sampleRecord() bill.Record {
	return bill.Record{
		ID:                2401234,
		SiglaTipo:         "PL",
		Numero:            1234,
		Ano:               2025,
		Ementa:            "Dispõe sobre atendimento em hospital público e dá outras providências.",
		DescricaoSituacao: "Aguardando Parecer",
		URLInteiroTeor:    "https://www.camara.leg.br/proposicoesWeb/prop_mostrarintegra?codteor=1",
	}
}

func entry(id int64, name, vote string) bill.VoterEntry {
	return bill.VoterEntry{
		VoteValue: vote,
		Voter:     bill.Voter{ID: id, Name: name, Party: "PT", State: "SP"},
	}
}

func TestNormalize_NoRollCalls(t *testing.T) {
	b, err := bill.Normalize(sampleRecord(), nil, 0)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}

	if b.ID != "2401234" {
		t.Errorf("ID = %q, want 2401234", b.ID)
	}
	if b.Title != "PL 1234/2025" {
		t.Errorf("Title = %q, want PL 1234/2025", b.Title)
	}
	if b.VotesYes != 0 || b.VotesNo != 0 {
		t.Errorf("votes = %d/%d, want 0/0", b.VotesYes, b.VotesNo)
	}
	if len(b.Representatives) != 1 || !b.Representatives[0].IsPlaceholder() {
		t.Fatalf("Representatives = %+v, want single placeholder", b.Representatives)
	}
	if b.Representatives[0].Vote != bill.VoteAbstained {
		t.Errorf("placeholder vote = %q, want abstained", b.Representatives[0].Vote)
	}
	if b.Category != bill.CategoryHealth {
		t.Errorf("Category = %q, want saúde", b.Category)
	}
	if b.Status != bill.StatusVoting {
		t.Errorf("Status = %q, want em votação", b.Status)
	}
	if b.Points != 25 {
		t.Errorf("Points = %d, want 25", b.Points)
	}
	if want := "PL 1234/2025 - " + sampleRecord().Ementa; b.OriginalText != want {
		t.Errorf("OriginalText = %q, want %q", b.OriginalText, want)
	}
	if !b.Quiz.Valid() || b.Quiz.CorrectAnswer != 0 {
		t.Errorf("Quiz = %+v, want generated quiz", b.Quiz)
	}
}

func TestNormalize_AggregatesRollCalls(t *testing.T) {
	rollCalls := []bill.RollCall{
		{ID: "a", Votes: []bill.VoterEntry{
			entry(1, "Ana", "Sim"),
			entry(2, "Bruno", "Não"),
			entry(3, "Carla", "Abstenção"),
		}},
		{ID: "b", Votes: []bill.VoterEntry{
			entry(1, "Ana", "Não"),
			entry(4, "Diego", "Sim"),
		}},
	}

	b, err := bill.Normalize(sampleRecord(), rollCalls, 2)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}

	if b.VotesYes != 2 || b.VotesNo != 2 {
		t.Errorf("votes = %d/%d, want 2/2", b.VotesYes, b.VotesNo)
	}
	if len(b.Representatives) != 4 {
		t.Fatalf("len(Representatives) = %d, want 4", len(b.Representatives))
	}
	// First occurrence wins.
	if b.Representatives[0].ID != "1" || b.Representatives[0].Vote != bill.VoteYes {
		t.Errorf("Representatives[0] = %+v, want Ana voting yes", b.Representatives[0])
	}
	if b.Representatives[2].Vote != bill.VoteAbstained {
		t.Errorf("Representatives[2].Vote = %q, want abstained", b.Representatives[2].Vote)
	}
	if b.Points != 75 {
		t.Errorf("Points = %d, want 75", b.Points)
	}

	seen := map[string]bool{}
	for _, r := range b.Representatives {
		if seen[r.ID] {
			t.Errorf("duplicate representative %s", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestNormalize_AuthoredQuiz(t *testing.T) {
	rec := sampleRecord()
	rec.Quiz = &bill.Quiz{
		Question:      "Qual o objetivo?",
		Options:       []string{"x", "y", "z", "w"},
		CorrectAnswer: 2,
		Explanation:   "Porque sim.",
	}

	b, err := bill.Normalize(rec, nil, 0)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if b.Quiz.Question != "Qual o objetivo?" || b.Quiz.CorrectAnswer != 2 {
		t.Errorf("Quiz = %+v, want authored quiz", b.Quiz)
	}

	rec.Quiz.Options[0] = "mutated"
	if b.Quiz.Options[0] != "x" {
		t.Error("bill quiz shares its options slice with the record")
	}
}

func TestNormalize_InvalidAuthoredQuizFallsBack(t *testing.T) {
	rec := sampleRecord()
	rec.Quiz = &bill.Quiz{Question: "?", Options: []string{"só uma"}}

	b, err := bill.Normalize(rec, nil, 0)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if !b.Quiz.Valid() || b.Quiz.Question == "?" {
		t.Errorf("Quiz = %+v, want generated fallback", b.Quiz)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*bill.Record)
	}{
		{"id", func(r *bill.Record) { r.ID = 0 }},
		{"type", func(r *bill.Record) { r.SiglaTipo = "" }},
		{"number", func(r *bill.Record) { r.Numero = 0 }},
		{"year", func(r *bill.Record) { r.Ano = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord()
			tt.mutate(&rec)

			_, err := bill.Normalize(rec, nil, 0)
			var nerr *bill.NormalizationError
			if !errors.As(err, &nerr) {
				t.Fatalf("Normalize() error = %v, want *NormalizationError", err)
			}
			if nerr.RecordID != rec.ID {
				t.Errorf("RecordID = %d, want %d", nerr.RecordID, rec.ID)
			}
		})
	}
}

func TestNormalize_EmptyEmenta(t *testing.T) {
	rec := sampleRecord()
	rec.Ementa = ""

	b, err := bill.Normalize(rec, nil, 0)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if b.SimplifiedDescription != "" {
		t.Errorf("SimplifiedDescription = %q, want empty", b.SimplifiedDescription)
	}
	if b.Category != bill.CategoryGeneral {
		t.Errorf("Category = %q, want geral", b.Category)
	}
}

func TestSummary_SynthesizesVotesWithoutRollCall(t *testing.T) {
	n := bill.NewNormalizer(bill.WithVoteSynth(func() (int, int) { return 120, 40 }))

	b, err := n.Summary(sampleRecord(), nil, 1)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if b.VotesYes != 120 || b.VotesNo != 40 {
		t.Errorf("votes = %d/%d, want 120/40", b.VotesYes, b.VotesNo)
	}
	if len(b.Representatives) != 1 || !b.Representatives[0].IsPlaceholder() {
		t.Errorf("Representatives = %+v, want placeholder", b.Representatives)
	}
	if b.Points != 50 {
		t.Errorf("Points = %d, want 50", b.Points)
	}
}

func TestSummary_DefaultSynthRange(t *testing.T) {
	n := bill.NewNormalizer()
	for i := 0; i < 50; i++ {
		b, err := n.Summary(sampleRecord(), nil, 0)
		if err != nil {
			t.Fatalf("Summary() error: %v", err)
		}
		if b.VotesYes < 50 || b.VotesYes > 349 {
			t.Errorf("VotesYes = %d, want in [50, 349]", b.VotesYes)
		}
		if b.VotesNo < 20 || b.VotesNo > 169 {
			t.Errorf("VotesNo = %d, want in [20, 169]", b.VotesNo)
		}
	}
}

func TestSummary_LatestRollCallOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	older := bill.RollCall{ID: "old", RegisteredAt: now.Add(-48 * time.Hour), Votes: []bill.VoterEntry{
		entry(99, "Zeca", "Sim"),
	}}
	var votes []bill.VoterEntry
	for i := int64(1); i <= 8; i++ {
		v := "Sim"
		if i%2 == 0 {
			v = "Não"
		}
		votes = append(votes, entry(i, "Dep", v))
	}
	latest := bill.RollCall{ID: "new", RegisteredAt: now, Votes: votes}

	b, err := bill.NewNormalizer().Summary(sampleRecord(), []bill.RollCall{older, latest}, 0)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if b.VotesYes != 4 || b.VotesNo != 4 {
		t.Errorf("votes = %d/%d, want 4/4", b.VotesYes, b.VotesNo)
	}
	if len(b.Representatives) != bill.SummaryRepresentativeLimit {
		t.Errorf("len(Representatives) = %d, want %d", len(b.Representatives), bill.SummaryRepresentativeLimit)
	}
	for _, r := range b.Representatives {
		if r.ID == "99" {
			t.Error("representative from older roll-call included in summary")
		}
	}
}

func TestDetails(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	timeline := []bill.Tramitacao{
		{DataHora: t1, Sequencia: 1, DescricaoTramitacao: "Apresentação"},
		{DataHora: t1.Add(72 * time.Hour), Sequencia: 3, DescricaoTramitacao: "Parecer"},
		{DataHora: t1.Add(24 * time.Hour), Sequencia: 2, DescricaoTramitacao: "Recebimento"},
	}
	rollCalls := []bill.RollCall{
		{ID: "a", Votes: []bill.VoterEntry{entry(1, "Ana", "Sim")}},
		{ID: "b", Votes: []bill.VoterEntry{entry(2, "Bruno", "Sim"), entry(1, "Ana", "Não")}},
	}

	d, err := bill.NewNormalizer().Details(sampleRecord(), rollCalls, timeline)
	if err != nil {
		t.Fatalf("Details() error: %v", err)
	}

	if d.OriginalText != sampleRecord().Ementa {
		t.Errorf("OriginalText = %q, want raw ementa", d.OriginalText)
	}
	if d.Points != 0 {
		t.Errorf("Points = %d, want 0", d.Points)
	}
	if d.VotesYes != 2 || d.VotesNo != 1 {
		t.Errorf("votes = %d/%d, want 2/1", d.VotesYes, d.VotesNo)
	}
	if len(d.Representatives) != 2 {
		t.Errorf("len(Representatives) = %d, want 2", len(d.Representatives))
	}
	if d.URLInteiroTeor == "" {
		t.Error("URLInteiroTeor is empty")
	}

	wantSeq := []int{3, 2, 1}
	for i, tr := range d.Tramitacoes {
		if tr.Sequencia != wantSeq[i] {
			t.Errorf("Tramitacoes[%d].Sequencia = %d, want %d", i, tr.Sequencia, wantSeq[i])
		}
	}
	if timeline[0].Sequencia != 1 {
		t.Error("Details reordered the caller's timeline")
	}
}

func TestDetails_EmptyTimeline(t *testing.T) {
	d, err := bill.NewNormalizer().Details(sampleRecord(), nil, nil)
	if err != nil {
		t.Fatalf("Details() error: %v", err)
	}
	if d.Tramitacoes == nil {
		t.Error("Tramitacoes = nil, want empty slice")
	}
	if d.VotesYes != 0 || d.VotesNo != 0 {
		t.Errorf("votes = %d/%d, want 0/0", d.VotesYes, d.VotesNo)
	}
}

func TestCollect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	results := []bill.Result{
		{RecordID: 1, Bill: bill.Bill{ID: "1"}},
		{RecordID: 2, Err: &bill.NormalizationError{RecordID: 2, Reason: "missing ano"}},
		{RecordID: 3, Bill: bill.Bill{ID: "3"}},
	}

	got := bill.Collect(results, logger)
	if len(got) != 2 {
		t.Fatalf("len(Collect()) = %d, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("Collect() order = [%s %s], want [1 3]", got[0].ID, got[1].ID)
	}
}

func TestPoints(t *testing.T) {
	tests := []struct {
		index int
		want  int
	}{
		{0, 25}, {1, 50}, {3, 100}, {-1, 25},
	}
	for _, tt := range tests {
		if got := bill.Points(tt.index); got != tt.want {
			t.Errorf("Points(%d) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestVoteFromUpstream(t *testing.T) {
	tests := []struct {
		token string
		want  bill.Vote
	}{
		{"Sim", bill.VoteYes},
		{" Sim ", bill.VoteYes},
		{"Não", bill.VoteNo},
		{"Na\u0303o", bill.VoteNo},
		{"Obstrução", bill.VoteAbstained},
		{"Artigo 17", bill.VoteAbstained},
		{"", bill.VoteAbstained},
	}
	for _, tt := range tests {
		if got := bill.VoteFromUpstream(tt.token); got != tt.want {
			t.Errorf("VoteFromUpstream(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}
