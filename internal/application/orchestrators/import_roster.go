package orchestrators

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"classbook/internal/domain/roster"
)

// RosterStoreForImport defines the store interface needed by ImportRoster.
type RosterStoreForImport interface {
	ListByClass(ctx context.Context, classID string) ([]roster.Member, error)
	Save(ctx context.Context, m roster.Member) error
}

// ImportRosterInput carries a CSV stream for one class.
// PRE: Reader has a header row with at least a NAME column
// INVARIANT: Existing members are never deleted; IDs are preserved on update.
type ImportRosterInput struct {
	ClassID string
	Reader  io.Reader
	ActorID string
	DryRun  bool
}

// ImportRosterResult holds aggregate counts and per-row errors from an import run.
type ImportRosterResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Errors  []ImportRowError `json:"errors,omitempty"`
	DryRun  bool             `json:"dry_run"`
	Unknown []string         `json:"unknown_columns,omitempty"`
}

// ImportRowError describes a validation or processing error for a single CSV row.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRosterDeps holds external dependencies for the import orchestrator.
type ImportRosterDeps struct {
	RosterStore RosterStoreForImport
	GenerateID  func() string
}

// ImportValidationError is returned when the CSV structure is invalid.
type ImportValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ImportValidationError) Error() string {
	return e.Message
}

// ExecuteImportRoster creates or updates the roster of a class from CSV.
// Columns: NAME (required), ROLL, GUARDIAN_EMAIL, ID. Rows match existing
// members by ID, then by roll label.
// PRE: input.ClassID is non-empty
// POST: Members are created or updated unless DryRun; per-row errors are collected
func ExecuteImportRoster(ctx context.Context, input ImportRosterInput, deps ImportRosterDeps) (ImportRosterResult, error) {
	if strings.TrimSpace(input.ClassID) == "" {
		return ImportRosterResult{}, roster.ErrEmptyClassID
	}

	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return ImportRosterResult{}, &ImportValidationError{Message: "CSV is empty or unreadable"}
	}

	colIdx := make(map[string]int, len(header))
	known := map[string]bool{"ID": true, "NAME": true, "ROLL": true, "GUARDIAN_EMAIL": true}
	result := ImportRosterResult{DryRun: input.DryRun}
	for i, h := range header {
		col := strings.ToUpper(strings.TrimSpace(h))
		colIdx[col] = i
		if !known[col] {
			result.Unknown = append(result.Unknown, h)
		}
	}
	if _, ok := colIdx["NAME"]; !ok {
		return ImportRosterResult{}, &ImportValidationError{Message: "CSV missing required column: NAME"}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	existing, err := deps.RosterStore.ListByClass(ctx, input.ClassID)
	if err != nil {
		return ImportRosterResult{}, err
	}
	byID := make(map[string]roster.Member, len(existing))
	byRoll := make(map[string]roster.Member, len(existing))
	for _, m := range existing {
		byID[m.ID] = m
		if m.RollLabel != "" {
			byRoll[m.RollLabel] = m
		}
	}

	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "malformed row"})
			continue
		}
		result.Total++

		m := roster.Member{
			ClassID:     input.ClassID,
			DisplayName: getCol(row, "NAME"),
			RollLabel:   getCol(row, "ROLL"),
		}
		if raw := getCol(row, "GUARDIAN_EMAIL"); raw != "" {
			addr, err := mail.ParseAddress(raw)
			if err != nil {
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "invalid guardian email: " + raw})
				continue
			}
			m.GuardianContact = strings.ToLower(addr.Address)
		}

		prev, found := byID[getCol(row, "ID")]
		if !found && m.RollLabel != "" {
			prev, found = byRoll[m.RollLabel]
		}
		switch {
		case found:
			m.ID = prev.ID
		case getCol(row, "ID") != "":
			m.ID = getCol(row, "ID")
		default:
			m.ID = deps.GenerateID()
		}

		if err := m.Validate(); err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}

		if !input.DryRun {
			if err := deps.RosterStore.Save(ctx, m); err != nil {
				slog.Error("roster_import_save_failed", "row", rowNum, "class_id", input.ClassID, "err", err)
				result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Message: "save failed (see server log)"})
				continue
			}
		}
		byID[m.ID] = m
		if m.RollLabel != "" {
			byRoll[m.RollLabel] = m
		}
		if found {
			result.Updated++
		} else {
			result.Created++
		}
	}

	slog.Info("roster_import",
		"class_id", input.ClassID,
		"actor", input.ActorID,
		"dry_run", input.DryRun,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)
	return result, nil
}
