package web

import (
	"net/http"

	"github.com/google/uuid"

	"classbook/internal/adapters/http/middleware"
	"classbook/internal/application/orchestrators"
	"classbook/internal/application/projections"
	"classbook/internal/domain/roster"
	"classbook/internal/domain/session"
)

// maxImportBody caps roster CSV uploads.
const maxImportBody = 5 << 20

type memberResponse struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	RollLabel          string `json:"roll_label"`
	HasGuardianContact bool   `json:"has_guardian_contact"`
}

func toMemberResponses(members []roster.Member) []memberResponse {
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			ID:                 m.ID,
			DisplayName:        m.DisplayName,
			RollLabel:          m.RollLabel,
			HasGuardianContact: m.HasGuardianContact(),
		})
	}
	return out
}

type recordResponse struct {
	RecordID    string           `json:"record_id"`
	ClassID     string           `json:"class_id"`
	Kind        session.Kind     `json:"kind"`
	Metadata    session.Metadata `json:"metadata"`
	Entries     []session.Entry  `json:"entries"`
	Summary     session.Summary  `json:"summary"`
	SubmittedBy string           `json:"submitted_by"`
}

// handleGetRoster handles GET /api/classes/{classID}/roster
func handleGetRoster(w http.ResponseWriter, r *http.Request) {
	classID := r.PathValue("classID")
	members, err := stores.RosterStore.ListByClass(r.Context(), classID)
	if err != nil {
		writeDomainError(w, r, "get_roster", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"class_id": classID,
		"members":  toMemberResponses(members),
	})
}

// handleImportRoster handles POST /api/classes/{classID}/roster/import.
// The body is CSV; ?dry_run=true validates without writing.
// PRE: Caller is an admin
// POST: Members are created or updated unless dry-run
func handleImportRoster(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	input := orchestrators.ImportRosterInput{
		ClassID: r.PathValue("classID"),
		Reader:  http.MaxBytesReader(w, r.Body, maxImportBody),
		ActorID: sess.AccountID,
		DryRun:  r.URL.Query().Get("dry_run") == "true",
	}
	deps := orchestrators.ImportRosterDeps{
		RosterStore: stores.RosterStore,
		GenerateID:  uuid.NewString,
	}
	result, err := orchestrators.ExecuteImportRoster(r.Context(), input, deps)
	if err != nil {
		writeDomainError(w, r, "import_roster", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleListRecords handles GET /api/classes/{classID}/records?kind=
func handleListRecords(w http.ResponseWriter, r *http.Request) {
	query := projections.GetRecordHistoryQuery{ClassID: r.PathValue("classID")}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := session.ParseKind(raw)
		if err != nil {
			writeDomainError(w, r, "list_records", err)
			return
		}
		query.Kind = kind
	}
	result, err := projections.QueryGetRecordHistory(r.Context(), query, projections.GetRecordHistoryDeps{
		RecordStore: stores.RecordStore,
	})
	if err != nil {
		writeDomainError(w, r, "list_records", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetRecord handles GET /api/classes/{classID}/records/{recordID}
func handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := stores.RecordStore.GetByKey(r.Context(), session.Key{
		ClassID:  r.PathValue("classID"),
		RecordID: r.PathValue("recordID"),
	})
	if err != nil {
		writeDomainError(w, r, "get_record", err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{
		RecordID:    rec.ID,
		ClassID:     rec.ClassID,
		Kind:        rec.Kind,
		Metadata:    rec.Metadata,
		Entries:     rec.Entries,
		Summary:     rec.Summary(),
		SubmittedBy: rec.SubmittedBy,
	})
}
