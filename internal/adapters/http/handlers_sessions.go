package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/application/orchestrators"
	"classbook/internal/domain/session"
)

type openSessionRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=attendance score review"`
	ClassID  string `json:"class_id" validate:"required,max=100"`
	RecordID string `json:"record_id" validate:"omitempty,max=100"`
}

type metadataRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	OccurredAt string `json:"occurred_at" validate:"required,datetime=2006-01-02"`
	MaxScore   int    `json:"max_score" validate:"gte=0"`
}

type valueRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"max=2000"`
}

// sessionResponse is the wire view of one open session.
type sessionResponse struct {
	Handle     string           `json:"handle"`
	LeaveGuard bool             `json:"leave_guard"`
	Members    []memberResponse `json:"members,omitempty"`
	session.View
}

type submitResponse struct {
	Receipt session.Receipt `json:"receipt"`
	sessionResponse
}

func writeSession(w http.ResponseWriter, status int, handle string, ls *liveSession, withMembers bool) {
	resp := sessionResponse{
		Handle:     handle,
		LeaveGuard: ls.leaveGuard.Load(),
		View:       ls.ctrl.View(),
	}
	if withMembers {
		resp.Members = toMemberResponses(ls.ctrl.Members())
	}
	writeJSON(w, status, resp)
}

// writeChanged tells watchers about a mutation and writes the new view.
func writeChanged(w http.ResponseWriter, handle string, ls *liveSession) {
	ls.notify()
	writeSession(w, http.StatusOK, handle, ls, false)
}

// newSink builds the persistence sink for one session.
func newSink() *orchestrators.RecordSink {
	deps := orchestrators.RecordSinkDeps{
		Records:    stores.RecordStore,
		Audit:      stores.AuditStore,
		GenerateID: uuid.NewString,
		Now:        now,
	}
	if perfCollector != nil {
		deps.Perf = perfCollector
	}
	if emailSender != nil {
		deps.Notices = &orchestrators.NotifyAbsencesDeps{
			Roster: stores.RosterStore,
			Sender: emailSender,
			From:   emailFromAddress,
		}
	}
	return orchestrators.NewRecordSink(deps)
}

// liveFor resolves the {handle} of r for the calling account, writing the
// error response when it cannot.
func liveFor(w http.ResponseWriter, r *http.Request) (string, *liveSession, bool) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	handle := r.PathValue("handle")
	ls, err := live.Get(handle, sess.AccountID)
	if err != nil {
		writeDomainError(w, r, "get_session", err)
		return "", nil, false
	}
	return handle, ls, true
}

// handleOpenSession handles POST /api/sessions.
// PRE: Body names a kind and class; record_id reopens a stored record
// POST: A new session starts in setup; a reopened one starts in editing, clean
func handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	ls := newLiveSession(sess.AccountID)
	ctrl, err := orchestrators.ExecuteOpenSession(r.Context(), orchestrators.OpenSessionInput{
		Kind:          session.Kind(req.Kind),
		ClassID:       req.ClassID,
		RecordID:      req.RecordID,
		ActorID:       sess.AccountID,
		OnDirtyChange: ls.onDirtyChange,
	}, orchestrators.OpenSessionDeps{
		Roster:  stores.RosterStore,
		Records: stores.RecordStore,
		Sink:    newSink(),
		Now:     now,
	})
	if err != nil {
		writeDomainError(w, r, "open_session", err)
		return
	}

	handle := live.Add(ls, ctrl)
	slog.Info("session_opened", "handle", handle, "kind", req.Kind, "class_id", req.ClassID, "record_id", req.RecordID, "actor", sess.AccountID)
	writeSession(w, http.StatusCreated, handle, ls, true)
}

// handleGetSession handles GET /api/sessions/{handle}
func handleGetSession(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, handle, ls, true)
}

// handleDiscardSession handles DELETE /api/sessions/{handle}?force=true.
// Without force a session with unsaved changes is kept and 409 returned.
func handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	force := r.URL.Query().Get("force") == "true"
	if err := live.Discard(r.PathValue("handle"), sess.AccountID, force); err != nil {
		writeDomainError(w, r, "discard_session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartEditing handles PUT /api/sessions/{handle}/metadata
func handleStartEditing(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	var req metadataRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	occurred, err := time.Parse("2006-01-02", req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "occurred_at must be YYYY-MM-DD")
		return
	}
	meta := session.Metadata{Title: req.Title, OccurredAt: occurred, MaxScore: req.MaxScore}
	if err := ls.ctrl.StartEditing(meta); err != nil {
		writeDomainError(w, r, "start_editing", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleReturnToSetup handles POST /api/sessions/{handle}/setup
func handleReturnToSetup(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	if err := ls.ctrl.ReturnToSetup(); err != nil {
		writeDomainError(w, r, "return_to_setup", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleSetEntry handles PUT /api/sessions/{handle}/entries/{memberID}.
// Scores above the maximum are clamped; null clears a score.
func handleSetEntry(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	v, err := session.ParseJSON(ls.ctrl.Kind(), req.Value)
	if err != nil {
		writeDomainError(w, r, "set_entry", err)
		return
	}
	if err := ls.ctrl.SetEntry(r.PathValue("memberID"), v); err != nil {
		writeDomainError(w, r, "set_entry", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleApplyToAll handles POST /api/sessions/{handle}/apply-all
func handleApplyToAll(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	v, err := session.ParseJSON(ls.ctrl.Kind(), req.Value)
	if err != nil {
		writeDomainError(w, r, "apply_all", err)
		return
	}
	if err := ls.ctrl.ApplyToAll(v); err != nil {
		writeDomainError(w, r, "apply_all", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleSetFeedback handles PUT /api/sessions/{handle}/feedback/{memberID}.
// An empty feedback string clears it.
func handleSetFeedback(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	var req feedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := ls.ctrl.SetFeedback(r.PathValue("memberID"), req.Feedback); err != nil {
		writeDomainError(w, r, "set_feedback", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleOpenConfirm handles POST /api/sessions/{handle}/confirm.
// The response summary is what the instructor confirms.
func handleOpenConfirm(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	if _, err := ls.ctrl.OpenConfirm(); err != nil {
		writeDomainError(w, r, "open_confirm", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleCancelConfirm handles DELETE /api/sessions/{handle}/confirm
func handleCancelConfirm(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	if err := ls.ctrl.CancelConfirm(); err != nil {
		writeDomainError(w, r, "cancel_confirm", err)
		return
	}
	writeChanged(w, handle, ls)
}

// handleSubmit handles POST /api/sessions/{handle}/submit.
// PRE: Session is awaiting confirmation
// POST: 200 with the receipt and the handle retired, or 502 with the
// session back in editing and every entry kept
func handleSubmit(w http.ResponseWriter, r *http.Request) {
	handle, ls, ok := liveFor(w, r)
	if !ok {
		return
	}
	// A client disconnect must not abort the write half way.
	receipt, err := ls.ctrl.Confirm(context.WithoutCancel(r.Context()))
	ls.notify()
	if err != nil {
		if status := statusFor(err); status == http.StatusConflict {
			writeDomainError(w, r, "submit", err)
			return
		}
		slog.Error("session_submit_rejected", "handle", handle, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "could not save the session; your entries are kept, try again",
			"session": sessionResponse{Handle: handle, LeaveGuard: ls.leaveGuard.Load(), View: ls.ctrl.View()},
		})
		return
	}
	live.Retire(handle)
	writeJSON(w, http.StatusOK, submitResponse{
		Receipt: receipt,
		sessionResponse: sessionResponse{
			Handle:     handle,
			LeaveGuard: ls.leaveGuard.Load(),
			View:       ls.ctrl.View(),
		},
	})
}
