// Package bill holds the canonical bill model and the pure transformations that
// turn raw Câmara records into it: classification, status resolution, text
// simplification, quiz synthesis, normalization and filtering.
package bill

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Category is one of the fixed topic buckets a bill is sorted into.
type Category string

const (
	CategoryHealth       Category = "saúde"
	CategoryEducation    Category = "educação"
	CategoryEconomy      Category = "economia"
	CategoryEnvironment  Category = "meio ambiente"
	CategorySecurity     Category = "segurança"
	CategoryLabor        Category = "trabalho"
	CategoryTransparency Category = "transparência"
	CategoryGeneral      Category = "geral"

	// CategoryAll is the filter wildcard. It is never assigned to a bill.
	CategoryAll Category = "all"
)

var categoryLabels = map[Category]string{
	CategoryHealth:       "Saúde",
	CategoryEducation:    "Educação",
	CategoryEconomy:      "Economia",
	CategoryEnvironment:  "Meio Ambiente",
	CategorySecurity:     "Segurança",
	CategoryLabor:        "Trabalho",
	CategoryTransparency: "Transparência",
	CategoryGeneral:      "Geral",
	CategoryAll:          "Todas Categorias",
}

// Categories returns the closed category set in display order.
func Categories() []Category {
	return []Category{
		CategoryHealth,
		CategoryEducation,
		CategoryEconomy,
		CategoryEnvironment,
		CategorySecurity,
		CategoryLabor,
		CategoryTransparency,
		CategoryGeneral,
	}
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok && c != CategoryAll
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Status is the canonical lifecycle state of a bill.
type Status string

const (
	StatusVoting   Status = "em votação"
	StatusApproved Status = "aprovado"
	StatusRejected Status = "rejeitado"

	// StatusAll is the filter wildcard.
	StatusAll Status = "all"
)

var statusLabels = map[Status]string{
	StatusVoting:   "Em Votação",
	StatusApproved: "Aprovado",
	StatusRejected: "Rejeitado",
	StatusAll:      "Todos Status",
}

// Statuses returns the three lifecycle states in display order.
func Statuses() []Status {
	return []Status{StatusVoting, StatusApproved, StatusRejected}
}

// Valid reports whether s is one of the three lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok && s != StatusAll
}

// Label returns the display label, or the raw value for unknown states.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Vote is a representative's (or citizen's) position on a bill.
type Vote string

const (
	VoteYes       Vote = "yes"
	VoteNo        Vote = "no"
	VoteAbstained Vote = "abstained"
)

// Upstream roll-call tokens.
const (
	upstreamYes = "Sim"
	upstreamNo  = "Não"
)

// VoteFromUpstream maps a Câmara tipoVoto token to a Vote.
func VoteFromUpstream(token string) Vote {
	switch norm.NFC.String(strings.TrimSpace(token)) {
	case upstreamYes:
		return VoteYes
	case upstreamNo:
		return VoteNo
	default:
		return VoteAbstained
	}
}

// Representative is a deputy whose vote was recorded on a roll-call.
type Representative struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Party string `json:"party" yaml:"party"`
	State string `json:"state" yaml:"state"`
	Vote  Vote   `json:"vote" yaml:"vote"`
	Photo string `json:"photo,omitempty" yaml:"photo,omitempty"`
}

// PlaceholderID marks the sentinel representative used when no roll-call exists.
const PlaceholderID = "placeholder"

// PlaceholderRepresentative returns the "awaiting vote" sentinel.
func PlaceholderRepresentative() Representative {
	return Representative{
		ID:    PlaceholderID,
		Name:  "Aguardando votação",
		Party: "-",
		State: "-",
		Vote:  VoteAbstained,
	}
}

// IsPlaceholder reports whether r is the sentinel entry.
func (r Representative) IsPlaceholder() bool {
	return r.ID == PlaceholderID
}

// QuizOptions is the number of options every quiz carries.
const QuizOptions = 4

// Quiz is a single multiple-choice comprehension question.
type Quiz struct {
	Question      string   `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correct_answer"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
}

// Valid reports whether the quiz has exactly four options and an in-range answer.
func (q Quiz) Valid() bool {
	return len(q.Options) == QuizOptions && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}

// IsCorrect reports whether answer is the correct option index.
func (q Quiz) IsCorrect(answer int) bool {
	return answer == q.CorrectAnswer
}

// Bill is the canonical, UI-ready legislative proposal.
type Bill struct {
	ID                    string           `json:"id" yaml:"id"`
	Title                 string           `json:"title" yaml:"title"`
	OriginalText          string           `json:"originalText" yaml:"original_text"`
	SimplifiedDescription string           `json:"simplifiedDescription" yaml:"simplified_description"`
	Category              Category         `json:"category" yaml:"category"`
	Status                Status           `json:"status" yaml:"status"`
	VotesYes              int              `json:"votesYes" yaml:"votes_yes"`
	VotesNo               int              `json:"votesNo" yaml:"votes_no"`
	Points                int              `json:"points" yaml:"points"`
	Representatives       []Representative `json:"representatives" yaml:"representatives"`
	Quiz                  Quiz             `json:"quiz" yaml:"quiz"`
}

// Tramitacao is one entry of a bill's procedural timeline.
type Tramitacao struct {
	DataHora            time.Time `json:"dataHora"`
	Sequencia           int       `json:"sequencia"`
	SiglaOrgao          string    `json:"siglaOrgao"`
	DescricaoTramitacao string    `json:"descricaoTramitacao"`
	Despacho            string    `json:"despacho"`
}

// BillDetails extends Bill with the data shown on the detail page.
type BillDetails struct {
	Bill
	Tramitacoes    []Tramitacao `json:"tramitacoes"`
	URLInteiroTeor string       `json:"urlInteiroTeor,omitempty"`
}
