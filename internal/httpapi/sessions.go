package httpapi

import (
	"net/http"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/session"
)

// SessionView is a session with its derived level progress.
type SessionView struct {
	session.Session
	RequiredXP int `json:"requiredXP"`
	Progress   int `json:"progress"`
}

func newSessionView(s session.Session) SessionView {
	return SessionView{Session: s, RequiredXP: s.State.RequiredXP(), Progress: s.State.Progress()}
}

// VoteRequest is the body of POST /sessions/{id}/votes.
type VoteRequest struct {
	BillID string    `json:"billId"`
	Choice bill.Vote `json:"choice"`
}

// VoteResponse is the outcome of a vote.
type VoteResponse struct {
	Session       SessionView            `json:"session"`
	Notifications []session.Notification `json:"notifications"`
	Quiz          bill.Quiz              `json:"quiz"`
}

// QuizRequest is the body of POST /sessions/{id}/quiz.
type QuizRequest struct {
	Answer *int `json:"answer"`
}

// QuizResponse is the outcome of a quiz answer.
type QuizResponse struct {
	Session       SessionView            `json:"session"`
	Notifications []session.Notification `json:"notifications"`
	Correct       bool                   `json:"correct"`
	CorrectAnswer int                    `json:"correctAnswer"`
	Explanation   string                 `json:"explanation"`
}

// FiltersRequest is the body of PUT /sessions/{id}/filters. Absent fields are
// left unchanged.
type FiltersRequest struct {
	Category *bill.Category `json:"category"`
	Status   *bill.Status   `json:"status"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.NewSession(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.EndSession(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.BillID == "" {
		writeError(w, http.StatusBadRequest, "billId is required")
		return
	}

	res, err := s.engine.CastVote(r.Context(), r.PathValue("id"), req.BillID, req.Choice)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VoteResponse{
		Session:       newSessionView(res.Session),
		Notifications: res.Notifications,
		Quiz:          res.Quiz,
	})
}

func (s *Server) handleAnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Answer == nil {
		writeError(w, http.StatusBadRequest, "answer is required")
		return
	}

	res, err := s.engine.AnswerQuiz(r.Context(), r.PathValue("id"), *req.Answer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QuizResponse{
		Session:       newSessionView(res.Session),
		Notifications: res.Notifications,
		Correct:       res.Correct,
		CorrectAnswer: res.CorrectAnswer,
		Explanation:   res.Explanation,
	})
}

func (s *Server) handleSetFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess, err := s.engine.SetFilters(r.Context(), r.PathValue("id"), req.Category, req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.ClearFilters(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}
