package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

var (
	// ErrAlreadyVoted is returned when a session votes twice on one bill.
	ErrAlreadyVoted = errors.New("already voted on this bill")
	// ErrNoActiveQuiz is returned when a quiz answer arrives with no quiz open.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrInvalidVote is returned for a choice other than yes or no.
	ErrInvalidVote = errors.New("invalid vote choice")
	// ErrInvalidAnswer is returned for an answer index outside the quiz options.
	ErrInvalidAnswer = errors.New("invalid quiz answer")
)

// BillLookup resolves a bill of the current listing by ID.
type BillLookup interface {
	Bill(ctx context.Context, id string) (bill.Bill, error)
}

// Publisher delivers notifications to whoever watches a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, n Notification) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, Notification) error { return nil }

// EngineConfig holds dependencies for the session engine.
type EngineConfig struct {
	Store     Store
	Bills     BillLookup
	Publisher Publisher
	Logger    *slog.Logger
}

// Engine turns citizen intents into session transitions.
type Engine struct {
	store     Store
	bills     BillLookup
	publisher Publisher
	logger    *slog.Logger
}

// NewEngine creates a new session engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		bills:     cfg.Bills,
		publisher: publisher,
		logger:    logger.With("component", "session"),
	}
}

// VoteResult is the outcome of CastVote. Quiz is the comprehension quiz the
// citizen is now invited to answer.
type VoteResult struct {
	Session       Session        `json:"session"`
	Notifications []Notification `json:"notifications"`
	Quiz          bill.Quiz      `json:"quiz"`
}

// QuizResult is the outcome of AnswerQuiz.
type QuizResult struct {
	Session       Session        `json:"session"`
	Notifications []Notification `json:"notifications"`
	Correct       bool           `json:"correct"`
	CorrectAnswer int            `json:"correctAnswer"`
	Explanation   string         `json:"explanation"`
}

// NewSession starts a session at level 1.
func (e *Engine) NewSession(_ context.Context) (Session, error) {
	sess, err := e.store.Create()
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	e.logger.Info("session started", "session_id", sess.ID)
	return sess, nil
}

// Snapshot returns the current session.
func (e *Engine) Snapshot(_ context.Context, sessionID string) (Session, error) {
	return e.store.Get(sessionID)
}

// CastVote records the citizen's vote on billID, awards the bill's points and
// opens its quiz.
func (e *Engine) CastVote(ctx context.Context, sessionID, billID string, choice bill.Vote) (VoteResult, error) {
	if choice != bill.VoteYes && choice != bill.VoteNo {
		return VoteResult{}, fmt.Errorf("%w: %q", ErrInvalidVote, choice)
	}
	if _, err := e.store.Get(sessionID); err != nil {
		return VoteResult{}, err
	}

	b, err := e.lookup(ctx, billID)
	if err != nil {
		return VoteResult{}, err
	}

	var notes []Notification
	sess, err := e.store.Update(sessionID, func(s *Session) error {
		if _, voted := s.Votes[billID]; voted {
			return fmt.Errorf("%w: %s", ErrAlreadyVoted, billID)
		}
		s.Votes[billID] = choice
		s.State, notes = Reduce(s.State, VoteCast{BillID: billID, Points: b.Points, Choice: choice})
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}

	e.logger.Info("vote recorded",
		"session_id", sessionID,
		"bill_id", billID,
		"choice", choice,
		"points", sess.State.Points,
		"level", sess.State.Level,
	)
	e.publish(ctx, sessionID, notes)

	return VoteResult{Session: sess, Notifications: notes, Quiz: b.Quiz}, nil
}

// AnswerQuiz checks answer against the quiz of the bill voted on last.
func (e *Engine) AnswerQuiz(ctx context.Context, sessionID string, answer int) (QuizResult, error) {
	current, err := e.store.Get(sessionID)
	if err != nil {
		return QuizResult{}, err
	}
	billID := current.State.ActiveQuizBillID
	if billID == "" {
		return QuizResult{}, ErrNoActiveQuiz
	}

	b, err := e.lookup(ctx, billID)
	if err != nil {
		return QuizResult{}, err
	}
	if answer < 0 || answer >= len(b.Quiz.Options) {
		return QuizResult{}, fmt.Errorf("%w: %d", ErrInvalidAnswer, answer)
	}
	correct := b.Quiz.IsCorrect(answer)

	var notes []Notification
	sess, err := e.store.Update(sessionID, func(s *Session) error {
		// Another request may have answered or replaced the quiz meanwhile.
		if s.State.ActiveQuizBillID != billID {
			return ErrNoActiveQuiz
		}
		s.State, notes = Reduce(s.State, QuizAnswered{Correct: correct, Explanation: b.Quiz.Explanation})
		return nil
	})
	if err != nil {
		return QuizResult{}, err
	}

	e.logger.Info("quiz answered",
		"session_id", sessionID,
		"bill_id", billID,
		"correct", correct,
	)
	e.publish(ctx, sessionID, notes)

	return QuizResult{
		Session:       sess,
		Notifications: notes,
		Correct:       correct,
		CorrectAnswer: b.Quiz.CorrectAnswer,
		Explanation:   b.Quiz.Explanation,
	}, nil
}

// SetCategoryFilter narrows the session's listing to one category.
func (e *Engine) SetCategoryFilter(_ context.Context, sessionID string, c bill.Category) (Session, error) {
	return e.store.Update(sessionID, func(s *Session) error {
		return s.Filters.SetCategory(c)
	})
}

// SetStatusFilter narrows the session's listing to one status.
func (e *Engine) SetStatusFilter(_ context.Context, sessionID string, st bill.Status) (Session, error) {
	return e.store.Update(sessionID, func(s *Session) error {
		return s.Filters.SetStatus(st)
	})
}

// SetFilters updates the given predicates in one step; nil leaves a predicate
// unchanged. An invalid value rejects the whole update.
func (e *Engine) SetFilters(_ context.Context, sessionID string, c *bill.Category, st *bill.Status) (Session, error) {
	return e.store.Update(sessionID, func(s *Session) error {
		if c != nil {
			if err := s.Filters.SetCategory(*c); err != nil {
				return err
			}
		}
		if st != nil {
			return s.Filters.SetStatus(*st)
		}
		return nil
	})
}

// ClearFilters resets the session's listing to every bill.
func (e *Engine) ClearFilters(_ context.Context, sessionID string) (Session, error) {
	return e.store.Update(sessionID, func(s *Session) error {
		s.Filters.Clear()
		return nil
	})
}

// EndSession discards a session.
func (e *Engine) EndSession(_ context.Context, sessionID string) error {
	if err := e.store.Delete(sessionID); err != nil {
		return err
	}
	e.logger.Info("session ended", "session_id", sessionID)
	return nil
}

func (e *Engine) lookup(ctx context.Context, billID string) (bill.Bill, error) {
	if e.bills == nil {
		return bill.Bill{}, fmt.Errorf("look up bill %s: no bill source configured", billID)
	}
	b, err := e.bills.Bill(ctx, billID)
	if err != nil {
		return bill.Bill{}, fmt.Errorf("look up bill %s: %w", billID, err)
	}
	return b, nil
}

func (e *Engine) publish(ctx context.Context, sessionID string, notes []Notification) {
	for _, n := range notes {
		if err := e.publisher.Publish(ctx, sessionID, n); err != nil {
			e.logger.Warn("failed to publish notification",
				"session_id", sessionID,
				"kind", n.Kind,
				"error", err,
			)
		}
	}
}
