package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	accountStore "classbook/internal/adapters/storage/account"
	auditStore "classbook/internal/adapters/storage/audit"
	"classbook/internal/application/listutil"
	"classbook/internal/application/orchestrators"
	auditDomain "classbook/internal/domain/audit"
)

// defaultPerfWindow is the snapshot window when ?since is absent.
const defaultPerfWindow = time.Hour

type createAccountRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=12"`
	Role     string `json:"role" validate:"required,oneof=admin instructor"`
}

type accountListItem struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
}

// handleAdminPerf handles GET /api/admin/perf?since=1h&top=10
// PRE: Caller is an admin
// POST: Returns request, query and submit timings for the window
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		writeError(w, http.StatusServiceUnavailable, "perf collection is disabled")
		return
	}
	window := defaultPerfWindow
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "since must be a positive duration such as 15m")
			return
		}
		window = d
	}
	top := listutil.ParseLimit(r.URL.Query(), "top", 10)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(now().Add(-window), top))
}

// handleAdminAudit handles GET /api/admin/audit with optional filters
// category, actor_id, resource_id and limit.
// PRE: Caller is an admin
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := auditStore.Filter{}
	if category := q.Get("category"); category != "" {
		cat := auditDomain.Category(category)
		filter.Category = &cat
	}
	if actorID := q.Get("actor_id"); actorID != "" {
		filter.ActorID = &actorID
	}
	if resourceID := q.Get("resource_id"); resourceID != "" {
		filter.ResourceID = &resourceID
	}

	events, err := stores.AuditStore.List(r.Context(), filter, listutil.ParseLimit(q, "limit", 100))
	if err != nil {
		writeDomainError(w, r, "list_audit", err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleListAccounts handles GET /api/admin/accounts?page=&per_page=
func handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := listutil.ParsePageParams(r.URL.Query())
	total, err := stores.AccountStore.Count(ctx)
	if err != nil {
		writeDomainError(w, r, "list_accounts", err)
		return
	}
	page := listutil.NewPageInfo(params.Page, params.PerPage, total)
	accounts, err := stores.AccountStore.List(ctx, accountStore.ListFilter{
		Limit:  page.PerPage,
		Offset: page.Offset(),
	})
	if err != nil {
		writeDomainError(w, r, "list_accounts", err)
		return
	}

	at := now()
	items := make([]accountListItem, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, accountListItem{
			ID:        a.ID,
			Email:     a.Email,
			Role:      a.Role,
			CreatedAt: a.CreatedAt,
			Locked:    a.IsLocked(at),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": items, "page": page})
}

// handleCreateAccount handles POST /api/admin/accounts
// PRE: Caller is an admin
// POST: Account created; 409 when the email is taken
func handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	id, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		GenerateID:   uuid.NewString,
		Now:          now,
	})
	if err != nil {
		writeDomainError(w, r, "create_account", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
