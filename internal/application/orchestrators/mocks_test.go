package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	emailAdapter "classbook/internal/adapters/email"
	"classbook/internal/adapters/http/perf"
	"classbook/internal/domain/account"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/roster"
	"classbook/internal/domain/session"
)

var testTime = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func testNow() time.Time { return testTime }

func testID() string { return "rec-001" }

// mockRosterStore implements RosterSource and RosterStoreForImport.
type mockRosterStore struct {
	members map[string][]roster.Member
	err     error
	saved   []roster.Member
}

func (m *mockRosterStore) ListByClass(_ context.Context, classID string) ([]roster.Member, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members[classID], nil
}

func (m *mockRosterStore) Save(_ context.Context, mem roster.Member) error {
	m.saved = append(m.saved, mem)
	return nil
}

// mockRecordStore implements RecordLookup and RecordWriter.
type mockRecordStore struct {
	mu      sync.Mutex
	records map[session.Key]session.Record
	saveErr error
	saved   []session.Record
}

func newMockRecordStore(recs ...session.Record) *mockRecordStore {
	s := &mockRecordStore{records: make(map[session.Key]session.Record)}
	for _, r := range recs {
		s.records[r.Key()] = r
	}
	return s
}

func (m *mockRecordStore) GetByKey(_ context.Context, key session.Key) (session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	if !ok {
		return session.Record{}, fmt.Errorf("record %s: %w", key.RecordID, session.ErrRecordNotFound)
	}
	return r, nil
}

func (m *mockRecordStore) Save(_ context.Context, r session.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[r.Key()] = r
	m.saved = append(m.saved, r)
	return nil
}

type mockAuditStore struct {
	events []audit.Event
}

func (m *mockAuditStore) Save(_ context.Context, e audit.Event) error {
	m.events = append(m.events, e)
	return nil
}

type mockSender struct {
	reqs []emailAdapter.SendRequest
	err  error
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.err != nil {
		return emailAdapter.SendResult{}, m.err
	}
	m.reqs = append(m.reqs, req)
	return emailAdapter.SendResult{MessageID: "m", SentAt: testTime}, nil
}

func (m *mockSender) SendBatch(ctx context.Context, reqs []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	var out []emailAdapter.SendResult
	for _, r := range reqs {
		res, err := m.Send(ctx, r)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

type mockPerf struct {
	entries []perf.Entry
}

func (m *mockPerf) Record(e perf.Entry) {
	m.entries = append(m.entries, e)
}

// mockAccountStore implements the account store interfaces used by login and seeding.
type mockAccountStore struct {
	accounts map[string]account.Account // keyed by email
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]account.Account)}
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	a, ok := m.accounts[email]
	if !ok {
		return account.Account{}, errors.New("not found")
	}
	return a, nil
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.accounts[a.Email] = a
	return nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

func classRoster() []roster.Member {
	return []roster.Member{
		{ID: "s1", ClassID: "p5", DisplayName: "Amina", RollLabel: "01", GuardianContact: "amina.parent@example.com"},
		{ID: "s2", ClassID: "p5", DisplayName: "Brian", RollLabel: "02"},
		{ID: "s3", ClassID: "p5", DisplayName: "Chloe", RollLabel: "03", GuardianContact: "chloe.parent@example.com"},
	}
}
