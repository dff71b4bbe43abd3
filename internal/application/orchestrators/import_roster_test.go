package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classbook/internal/domain/roster"
)

// TestExecuteImportRoster tests create, update-by-roll and row errors.
func TestExecuteImportRoster(t *testing.T) {
	store := &mockRosterStore{members: map[string][]roster.Member{"p5": classRoster()}}
	ids := 0
	csv := `NAME,ROLL,GUARDIAN_EMAIL,HOUSE
Amina Kamau,01,Parent <AMINA.PARENT@example.com>,Red
Dan,04,,Blue
,05,,Green
Eve,06,not-an-email,Blue
`
	res, err := ExecuteImportRoster(context.Background(), ImportRosterInput{
		ClassID: "p5",
		Reader:  strings.NewReader(csv),
		ActorID: "acc-1",
	}, ImportRosterDeps{
		RosterStore: store,
		GenerateID:  func() string { ids++; return "new-" + string(rune('0'+ids)) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 4 || res.Created != 1 || res.Updated != 1 || len(res.Errors) != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Unknown) != 1 || res.Unknown[0] != "HOUSE" {
		t.Errorf("Unknown = %v, want [HOUSE]", res.Unknown)
	}
	if len(store.saved) != 2 {
		t.Fatalf("saved = %d, want 2", len(store.saved))
	}
	if store.saved[0].ID != "s1" || store.saved[0].GuardianContact != "amina.parent@example.com" {
		t.Errorf("updated member = %+v", store.saved[0])
	}
	if store.saved[1].ID != "new-1" || store.saved[1].ClassID != "p5" {
		t.Errorf("created member = %+v", store.saved[1])
	}
}

// TestExecuteImportRoster_DryRun tests that a dry run writes nothing.
func TestExecuteImportRoster_DryRun(t *testing.T) {
	store := &mockRosterStore{members: map[string][]roster.Member{}}
	res, err := ExecuteImportRoster(context.Background(), ImportRosterInput{
		ClassID: "p5",
		Reader:  strings.NewReader("name\nZed\n"),
		DryRun:  true,
	}, ImportRosterDeps{RosterStore: store, GenerateID: testID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Created != 1 || len(store.saved) != 0 {
		t.Errorf("result = %+v, saved = %d", res, len(store.saved))
	}
}

// TestExecuteImportRoster_MissingName tests header validation.
func TestExecuteImportRoster_MissingName(t *testing.T) {
	_, err := ExecuteImportRoster(context.Background(), ImportRosterInput{
		ClassID: "p5",
		Reader:  strings.NewReader("ROLL\n01\n"),
	}, ImportRosterDeps{RosterStore: &mockRosterStore{}, GenerateID: testID})
	var verr *ImportValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want ImportValidationError", err)
	}
}
