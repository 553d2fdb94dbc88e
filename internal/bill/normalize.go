package bill

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"
)

const (
	// PointsPerPosition scales the reward by the bill's position in a batch.
	PointsPerPosition = 25
	// SummaryRepresentativeLimit caps the representatives shown on listing cards.
	SummaryRepresentativeLimit = 5
)

// Record is a single upstream proposition after the parse boundary has mapped
// missing fields to zero values.
type Record struct {
	ID                int64
	SiglaTipo         string
	Numero            int
	Ano               int
	Ementa            string
	Keywords          string
	DescricaoSituacao string
	URLInteiroTeor    string
	// Quiz is an authored quiz, when one exists for this bill.
	Quiz *Quiz
}

// Title returns the "{type} {number}/{year}" display title.
func (r Record) Title() string {
	return fmt.Sprintf("%s %d/%d", r.SiglaTipo, r.Numero, r.Ano)
}

// Validate checks the fields every bill requires.
func (r Record) Validate() error {
	switch {
	case r.ID <= 0:
		return &NormalizationError{RecordID: r.ID, Reason: "missing id"}
	case r.SiglaTipo == "":
		return &NormalizationError{RecordID: r.ID, Reason: "missing siglaTipo"}
	case r.Numero <= 0:
		return &NormalizationError{RecordID: r.ID, Reason: "missing numero"}
	case r.Ano <= 0:
		return &NormalizationError{RecordID: r.ID, Reason: "missing ano"}
	}
	return nil
}

// Voter identifies the deputy behind a roll-call entry.
type Voter struct {
	ID       int64
	Name     string
	Party    string
	State    string
	PhotoURL string
}

// VoterEntry is one individual vote inside a roll-call.
type VoterEntry struct {
	VoteValue string
	Voter     Voter
}

// RollCall is a recorded voting session and its votes.
type RollCall struct {
	ID           string
	RegisteredAt time.Time
	Votes        []VoterEntry
}

// NormalizationError reports a record that could not become a Bill.
type NormalizationError struct {
	RecordID int64
	Reason   string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record %d: %s", e.RecordID, e.Reason)
}

// VoteSynth produces placeholder vote counts for bills without roll-calls.
type VoteSynth func() (yes, no int)

func randomVotes() (int, int) {
	return rand.IntN(300) + 50, rand.IntN(150) + 20
}

// Normalizer converts upstream records into Bills.
type Normalizer struct {
	classifier *Classifier
	synth      VoteSynth
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClassifier replaces the default category rule table.
func WithClassifier(c *Classifier) NormalizerOption {
	return func(n *Normalizer) {
		n.classifier = c
	}
}

// WithVoteSynth sets the placeholder vote generator used by Summary.
func WithVoteSynth(f VoteSynth) NormalizerOption {
	return func(n *Normalizer) {
		n.synth = f
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		classifier: defaultClassifier,
		synth:      randomVotes,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a Bill whose votes and representatives aggregate every
// given roll-call. index is the record's position in its fetched batch.
func (n *Normalizer) Normalize(rec Record, rollCalls []RollCall, index int) (Bill, error) {
	if err := rec.Validate(); err != nil {
		return Bill{}, err
	}
	b := n.base(rec, index)
	b.OriginalText = b.Title + " - " + rec.Ementa
	b.VotesYes, b.VotesNo = countVotes(rollCalls)
	b.Representatives = withPlaceholder(representatives(rollCalls, 0))
	return b, nil
}

// Summary builds the listing-card view: only the most recent roll-call counts,
// and bills with no roll-call get synthesized placeholder totals.
func (n *Normalizer) Summary(rec Record, rollCalls []RollCall, index int) (Bill, error) {
	if err := rec.Validate(); err != nil {
		return Bill{}, err
	}
	b := n.base(rec, index)
	b.OriginalText = b.Title + " - " + rec.Ementa

	latest, ok := LatestRollCall(rollCalls)
	if !ok {
		b.VotesYes, b.VotesNo = n.synth()
		b.Representatives = []Representative{PlaceholderRepresentative()}
		return b, nil
	}
	only := []RollCall{latest}
	b.VotesYes, b.VotesNo = countVotes(only)
	b.Representatives = withPlaceholder(representatives(only, SummaryRepresentativeLimit))
	return b, nil
}

// Details builds the detail-page view: cumulative totals over every given
// roll-call, zero when there are none, plus the procedural timeline.
func (n *Normalizer) Details(rec Record, rollCalls []RollCall, timeline []Tramitacao) (BillDetails, error) {
	if err := rec.Validate(); err != nil {
		return BillDetails{}, err
	}
	b := n.base(rec, 0)
	b.Points = 0
	b.OriginalText = rec.Ementa
	b.VotesYes, b.VotesNo = countVotes(rollCalls)
	b.Representatives = withPlaceholder(representatives(rollCalls, 0))

	tl := slices.Clone(timeline)
	if tl == nil {
		tl = []Tramitacao{}
	}
	slices.SortStableFunc(tl, func(a, b Tramitacao) int {
		return b.DataHora.Compare(a.DataHora)
	})

	return BillDetails{
		Bill:           b,
		Tramitacoes:    tl,
		URLInteiroTeor: rec.URLInteiroTeor,
	}, nil
}

func (n *Normalizer) base(rec Record, index int) Bill {
	title := rec.Title()
	simplified := Simplify(rec.Ementa)

	quiz := GenerateQuiz(title, simplified)
	if rec.Quiz != nil && rec.Quiz.Valid() {
		quiz = Quiz{
			Question:      rec.Quiz.Question,
			Options:       slices.Clone(rec.Quiz.Options),
			CorrectAnswer: rec.Quiz.CorrectAnswer,
			Explanation:   rec.Quiz.Explanation,
		}
	}

	return Bill{
		ID:                    strconv.FormatInt(rec.ID, 10),
		Title:                 title,
		SimplifiedDescription: simplified,
		Category:              n.classifier.Classify(rec.Ementa, rec.Keywords),
		Status:                ResolveStatus(rec.DescricaoSituacao),
		Points:                Points(index),
		Quiz:                  quiz,
	}
}

// Points returns the reward for the bill at position index of a batch.
func Points(index int) int {
	return (max(index, 0) + 1) * PointsPerPosition
}

func countVotes(rollCalls []RollCall) (yes, no int) {
	for _, rc := range rollCalls {
		for _, v := range rc.Votes {
			switch VoteFromUpstream(v.VoteValue) {
			case VoteYes:
				yes++
			case VoteNo:
				no++
			}
		}
	}
	return yes, no
}

// representatives maps voters across roll-calls, keeping the first occurrence
// of each id. limit <= 0 means no limit.
func representatives(rollCalls []RollCall, limit int) []Representative {
	var reps []Representative
	seen := map[string]struct{}{}
	for _, rc := range rollCalls {
		for _, v := range rc.Votes {
			id := strconv.FormatInt(v.Voter.ID, 10)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			reps = append(reps, Representative{
				ID:    id,
				Name:  v.Voter.Name,
				Party: v.Voter.Party,
				State: v.Voter.State,
				Vote:  VoteFromUpstream(v.VoteValue),
				Photo: v.Voter.PhotoURL,
			})
			if limit > 0 && len(reps) == limit {
				return reps
			}
		}
	}
	return reps
}

func withPlaceholder(reps []Representative) []Representative {
	if len(reps) == 0 {
		return []Representative{PlaceholderRepresentative()}
	}
	return reps
}

// LatestRollCall picks the most recently registered roll-call. Upstream lists
// them newest first, so ties and missing timestamps keep the earliest entry.
func LatestRollCall(rollCalls []RollCall) (RollCall, bool) {
	if len(rollCalls) == 0 {
		return RollCall{}, false
	}
	latest := rollCalls[0]
	for _, rc := range rollCalls[1:] {
		if rc.RegisteredAt.After(latest.RegisteredAt) {
			latest = rc
		}
	}
	return latest, true
}

// Result is the outcome of normalizing one record of a batch.
type Result struct {
	RecordID int64
	Bill     Bill
	Err      error
}

// Collect keeps the successful results in order and logs the dropped ones.
func Collect(results []Result, logger *slog.Logger) []Bill {
	if logger == nil {
		logger = slog.Default()
	}
	bills := make([]Bill, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			logger.Warn("dropping bill from batch", "record_id", r.RecordID, "error", r.Err)
			continue
		}
		bills = append(bills, r.Bill)
	}
	return bills
}

var defaultNormalizer = NewNormalizer()

// Normalize builds a Bill with the default normalizer.
func Normalize(rec Record, rollCalls []RollCall, index int) (Bill, error) {
	return defaultNormalizer.Normalize(rec, rollCalls, index)
}
