package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	emailAdapter "classbook/internal/adapters/email"
	"classbook/internal/domain/roster"
	"classbook/internal/domain/session"
)

// NotifyAbsencesInput carries the submitted attendance record.
type NotifyAbsencesInput struct {
	Record session.Record
}

// NotifyAbsencesDeps holds dependencies for NotifyAbsences.
type NotifyAbsencesDeps struct {
	Roster RosterSource
	Sender emailAdapter.Sender
	From   string // empty uses the sender's default
}

// NotifyAbsencesResult reports what was sent.
type NotifyAbsencesResult struct {
	Sent    int
	Skipped int // absent members without a guardian contact
}

const absenceNoticeBody = `Dear guardian,

**%s** was marked **absent** from *%s* on %s.

If you believe this is a mistake, please reply to this email.`

// absenceNoticeText is the plain-text part: the same letter without emphasis.
var absenceNoticeText = strings.NewReplacer("**", "", "*", "").Replace(absenceNoticeBody)

// ExecuteNotifyAbsences e-mails the guardian of every member marked absent.
// PRE: input.Record is an attendance record that has been persisted
// POST: One message per absent member with a guardian contact is handed to the sender
func ExecuteNotifyAbsences(ctx context.Context, input NotifyAbsencesInput, deps NotifyAbsencesDeps) (NotifyAbsencesResult, error) {
	rec := input.Record
	if rec.Kind != session.KindAttendance {
		return NotifyAbsencesResult{}, fmt.Errorf("%w: absence notices need an attendance record", session.ErrKindMismatch)
	}

	absent := make(map[string]bool)
	for _, e := range rec.Entries {
		if e.Value.Mark() == session.MarkAbsent {
			absent[e.MemberID] = true
		}
	}
	if len(absent) == 0 {
		return NotifyAbsencesResult{}, nil
	}

	members, err := deps.Roster.ListByClass(ctx, rec.ClassID)
	if err != nil {
		return NotifyAbsencesResult{}, fmt.Errorf("load roster %s: %w", rec.ClassID, err)
	}

	var result NotifyAbsencesResult
	var reqs []emailAdapter.SendRequest
	for _, m := range members {
		if !absent[m.ID] {
			continue
		}
		if !m.HasGuardianContact() {
			result.Skipped++
			continue
		}
		req, err := absenceNotice(m, rec, deps.From)
		if err != nil {
			return result, err
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return result, nil
	}

	sent, err := deps.Sender.SendBatch(ctx, reqs)
	result.Sent = len(sent)
	if err != nil {
		return result, fmt.Errorf("send absence notices: %w", err)
	}

	slog.Info("absence_notice_sent", "record_id", rec.ID, "class_id", rec.ClassID, "sent", result.Sent, "skipped", result.Skipped)
	return result, nil
}

func absenceNotice(m roster.Member, rec session.Record, from string) (emailAdapter.SendRequest, error) {
	date := rec.Metadata.OccurredAt.Format("Monday 2 January 2006")
	md := fmt.Sprintf(absenceNoticeBody,
		emailAdapter.EscapeMarkdown(m.DisplayName), emailAdapter.EscapeMarkdown(rec.Metadata.Title), date)
	html, err := emailAdapter.RenderMarkdown(md)
	if err != nil {
		return emailAdapter.SendRequest{}, err
	}
	plain := fmt.Sprintf(absenceNoticeText, m.DisplayName, rec.Metadata.Title, date)
	return emailAdapter.SendRequest{
		To:      []string{m.GuardianContact},
		From:    from,
		Subject: fmt.Sprintf("Absence: %s, %s", m.DisplayName, rec.Metadata.Title),
		HTML:    html,
		Text:    plain,
	}, nil
}
