// Package session tracks a citizen's gamified progress and bill filters for
// the lifetime of one browser session.
package session

import "github.com/cidadao-ativo/cidadao-api/internal/bill"

const (
	// XPPerLevel scales the XP threshold of each level.
	XPPerLevel = 200
	// QuizBonus is awarded for a correct quiz answer.
	QuizBonus = 25
)

// RequiredXP returns the XP needed to leave level.
func RequiredXP(level int) int {
	return level * XPPerLevel
}

// State is the gamification progress of one session.
type State struct {
	Points           int    `json:"points"`
	Level            int    `json:"level"`
	CurrentXP        int    `json:"currentXP"`
	ActiveQuizBillID string `json:"activeQuizBillId,omitempty"`
}

// NewState returns the starting state: level 1, nothing earned.
func NewState() State {
	return State{Level: 1}
}

// RequiredXP returns the XP threshold of the current level.
func (s State) RequiredXP() int {
	return RequiredXP(s.Level)
}

// Progress returns the level bar fill as a percentage in [0, 100).
func (s State) Progress() int {
	req := s.RequiredXP()
	if req <= 0 {
		return 0
	}
	return s.CurrentXP * 100 / req
}

// Event is a user action the reducer reacts to.
type Event interface {
	isEvent()
}

// VoteCast records a vote on a bill worth Points.
type VoteCast struct {
	BillID string
	Points int
	Choice bill.Vote
}

// QuizAnswered records the outcome of the active quiz. Explanation, when set,
// is shown to citizens who answered wrong.
type QuizAnswered struct {
	Correct     bool
	Explanation string
}

func (VoteCast) isEvent()     {}
func (QuizAnswered) isEvent() {}

// Reduce applies ev to s and returns the next state plus the notifications the
// transition produced. It never mutates its input and never fails.
func Reduce(s State, ev Event) (State, []Notification) {
	if s.Level < 1 {
		s.Level = 1
	}

	switch e := ev.(type) {
	case VoteCast:
		earned := max(e.Points, 0)
		next, leveled := award(s, earned)
		next.ActiveQuizBillID = e.BillID
		if leveled {
			return next, []Notification{levelUp(next.Level)}
		}
		return next, []Notification{voteRecorded(earned)}

	case QuizAnswered:
		if !e.Correct {
			s.ActiveQuizBillID = ""
			return s, []Notification{quizIncorrect(e.Explanation)}
		}
		next, leveled := award(s, QuizBonus)
		next.ActiveQuizBillID = ""
		notes := []Notification{quizCorrect(QuizBonus)}
		if leveled {
			notes = append(notes, levelUp(next.Level))
		}
		return next, notes
	}

	return s, nil
}

// award adds amount to points and XP, carrying overflow into the next level
// using the threshold of the level being left.
func award(s State, amount int) (State, bool) {
	s.Points += amount
	s.CurrentXP += amount

	leveled := false
	for s.CurrentXP >= RequiredXP(s.Level) {
		s.CurrentXP -= RequiredXP(s.Level)
		s.Level++
		leveled = true
	}
	return s, leveled
}
