package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

// mockStore implements the service store interfaces in memory. A single
// mutex guards every map and slice because dispatch tests exercise it from
// concurrent goroutines.
type mockStore struct {
	mu sync.Mutex

	members map[string]*db.Member
	shifts  []db.Shift

	assignments         map[string]*db.Assignment
	insertedAssignments []db.Assignment
	deletedFrom         *time.Time
	deleteCount         int64

	overrides         map[string]*db.Override
	activeOverrides   map[string]*db.Override // assignmentID -> override
	insertedOverrides []*db.Override
	cancelled         map[string]time.Time
	completedCount    int64

	notifications []db.NotificationRecord
	retryCounts   map[string]int
	notified      map[string]time.Time

	settings map[string]string

	getActiveMembersErr   error
	getShiftsErr          error
	getByDateRangeErr     error
	insertAssignmentsErr  error
	deleteAssignmentsErr  error
	insertOverrideErr     error
	insertNotificationErr error
	markNotifiedErr       error
}

func newMockStore() *mockStore {
	return &mockStore{
		members:         make(map[string]*db.Member),
		assignments:     make(map[string]*db.Assignment),
		overrides:       make(map[string]*db.Override),
		activeOverrides: make(map[string]*db.Override),
		cancelled:       make(map[string]time.Time),
		retryCounts:     make(map[string]int),
		notified:        make(map[string]time.Time),
		settings:        make(map[string]string),
	}
}

func (m *mockStore) GetMember(ctx context.Context, id string) (*db.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[id], nil
}

func (m *mockStore) GetActiveMembers(ctx context.Context) ([]db.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getActiveMembersErr != nil {
		return nil, m.getActiveMembersErr
	}
	var out []db.Member
	for _, member := range m.members {
		if member.Active {
			out = append(out, *member)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := out[i].RotationOrder, out[j].RotationOrder
		if oi == nil {
			return false
		}
		if oj == nil {
			return true
		}
		if *oi != *oj {
			return *oi < *oj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockStore) InsertMember(ctx context.Context, member *db.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *mockStore) SetMemberActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.members[id]; ok {
		member.Active = active
	}
	return nil
}

func (m *mockStore) SetRotationOrder(ctx context.Context, id string, order *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member, ok := m.members[id]; ok {
		member.RotationOrder = order
	}
	return nil
}

func (m *mockStore) UpdateRotationOrders(ctx context.Context, orders map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, order := range orders {
		o := order
		if member, ok := m.members[id]; ok {
			member.RotationOrder = &o
		}
	}
	return nil
}

func (m *mockStore) MaxRotationOrder(ctx context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max, found := 0, false
	for _, member := range m.members {
		if member.Active && member.RotationOrder != nil {
			if !found || *member.RotationOrder > max {
				max = *member.RotationOrder
				found = true
			}
		}
	}
	return max, found, nil
}

func (m *mockStore) GetShiftsOrdered(ctx context.Context) ([]db.Shift, error) {
	if m.getShiftsErr != nil {
		return nil, m.getShiftsErr
	}
	return m.shifts, nil
}

func (m *mockStore) GetAssignment(ctx context.Context, id string) (*db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[id], nil
}

func (m *mockStore) GetAssignmentsByDateRange(ctx context.Context, start, end time.Time) ([]db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getByDateRangeErr != nil {
		return nil, m.getByDateRangeErr
	}
	var out []db.Assignment
	for _, a := range m.assignments {
		if a.StartAt.Before(end) && a.EndAt.After(start) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) GetAssignmentsByMember(ctx context.Context, memberID string, start, end *time.Time) ([]db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Assignment
	for _, a := range m.assignments {
		if a.MemberID != memberID {
			continue
		}
		if start != nil && !a.EndAt.After(*start) {
			continue
		}
		if end != nil && !a.StartAt.Before(*end) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockStore) GetNextAssignmentForMember(ctx context.Context, memberID string, after time.Time) (*db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *db.Assignment
	for _, a := range m.assignments {
		if a.MemberID == memberID && a.StartAt.After(after) {
			if next == nil || a.StartAt.Before(next.StartAt) {
				next = a
			}
		}
	}
	return next, nil
}

func (m *mockStore) GetPendingAssignments(ctx context.Context, dayStart, dayEnd time.Time) ([]db.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Assignment
	for _, a := range m.assignments {
		if !a.Notified && !a.StartAt.Before(dayStart) && a.StartAt.Before(dayEnd) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) InsertAssignments(ctx context.Context, assignments []db.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertAssignmentsErr != nil {
		return m.insertAssignmentsErr
	}
	m.insertedAssignments = append(m.insertedAssignments, assignments...)
	for i := range assignments {
		a := assignments[i]
		m.assignments[a.ID] = &a
	}
	return nil
}

func (m *mockStore) DeleteAssignmentsFrom(ctx context.Context, from time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteAssignmentsErr != nil {
		return 0, m.deleteAssignmentsErr
	}
	f := from
	m.deletedFrom = &f
	var deleted int64
	for id, a := range m.assignments {
		if !a.StartAt.Before(from) {
			delete(m.assignments, id)
			deleted++
		}
	}
	m.deleteCount = deleted
	return deleted, nil
}

func (m *mockStore) MarkAssignmentNotified(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markNotifiedErr != nil {
		return m.markNotifiedErr
	}
	m.notified[id] = at
	if a, ok := m.assignments[id]; ok {
		a.Notified = true
		a.NotifiedAt = &at
	}
	return nil
}

func (m *mockStore) FurthestAssignmentEnd(ctx context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var furthest time.Time
	found := false
	for _, a := range m.assignments {
		if a.EndAt.After(furthest) {
			furthest = a.EndAt
			found = true
		}
	}
	return furthest, found, nil
}

func (m *mockStore) GetOverride(ctx context.Context, id string) (*db.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overrides[id], nil
}

func (m *mockStore) GetActiveOverrideForAssignment(ctx context.Context, assignmentID string) (*db.Override, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeOverrides[assignmentID], nil
}

func (m *mockStore) InsertOverride(ctx context.Context, override *db.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertOverrideErr != nil {
		return m.insertOverrideErr
	}
	m.overrides[override.ID] = override
	m.activeOverrides[override.AssignmentID] = override
	m.insertedOverrides = append(m.insertedOverrides, override)
	return nil
}

func (m *mockStore) MarkOverrideCancelled(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled[id] = at
	if o, ok := m.overrides[id]; ok {
		o.Status = db.OverrideCancelled
		delete(m.activeOverrides, o.AssignmentID)
	}
	return nil
}

func (m *mockStore) CompletePastOverrides(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var completed int64
	for _, o := range m.overrides {
		if o.Status != db.OverrideActive {
			continue
		}
		a, ok := m.assignments[o.AssignmentID]
		if ok && a.EndAt.Before(now) {
			o.Status = db.OverrideCompleted
			delete(m.activeOverrides, o.AssignmentID)
			completed++
		}
	}
	m.completedCount = completed
	return completed, nil
}

func (m *mockStore) ListOverrides(ctx context.Context, status string, limit, offset int) ([]db.Override, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Override
	for _, o := range m.overrides {
		if status == "" || o.Status == status {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

func (m *mockStore) InsertNotificationRecord(ctx context.Context, record *db.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertNotificationErr != nil {
		return m.insertNotificationErr
	}
	m.notifications = append(m.notifications, *record)
	return nil
}

func (m *mockStore) GetNotificationRetryCount(ctx context.Context, assignmentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCounts[assignmentID], nil
}

func (m *mockStore) GetNotificationsByAssignment(ctx context.Context, assignmentID string) ([]db.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.NotificationRecord
	for _, r := range m.notifications {
		if r.AssignmentID != nil && *r.AssignmentID == assignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateNotificationStatus(ctx context.Context, providerID, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ProviderID == providerID {
			m.notifications[i].Status = status
			m.notifications[i].ErrorMessage = errorMessage
		}
	}
	return nil
}

func (m *mockStore) GetNotificationSuccessRate(ctx context.Context, since time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, succeeded := 0, 0
	for _, r := range m.notifications {
		if r.CreatedAt.Before(since) {
			continue
		}
		total++
		if r.Status == db.NotificationSent || r.Status == db.NotificationDelivered {
			succeeded++
		}
	}
	if total == 0 {
		return 1, nil
	}
	return float64(succeeded) / float64(total), nil
}

func (m *mockStore) notificationsByStatus(status string) []db.NotificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.NotificationRecord
	for _, r := range m.notifications {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockStore) GetSettingValue(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.settings[key]
	return value, ok, nil
}

func (m *mockStore) SetSettingValue(ctx context.Context, key, value, valueType, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *mockStore) GetAllSettings(ctx context.Context) ([]db.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Setting
	for key, value := range m.settings {
		out = append(out, db.Setting{Key: key, Value: value})
	}
	return out, nil
}

// fakeClock returns a fixed now and fires backoff waits immediately while
// recording the requested delays
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	delays []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.now.Add(d)
	return ch
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

// sendResult scripts one Send response from the mock client
type sendResult struct {
	providerID string
	status     string
	err        error
}

// mockMessageClient returns scripted results per phone number, in order,
// repeating the last one when the script runs out
type mockMessageClient struct {
	mu      sync.Mutex
	scripts map[string][]sendResult
	calls   map[string]int
	sent    []string
}

func newMockMessageClient() *mockMessageClient {
	return &mockMessageClient{
		scripts: make(map[string][]sendResult),
		calls:   make(map[string]int),
	}
}

func (m *mockMessageClient) script(phone string, results ...sendResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[phone] = results
}

func (m *mockMessageClient) Send(ctx context.Context, to, body string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, body)
	i := m.calls[to]
	m.calls[to]++
	script := m.scripts[to]
	if len(script) == 0 {
		return "SM-default", "sent", nil
	}
	if i >= len(script) {
		i = len(script) - 1
	}
	r := script[i]
	return r.providerID, r.status, r.err
}

func (m *mockMessageClient) callCount(phone string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[phone]
}

// transientErr is a retryable send failure
type transientErr struct{ msg string }

func (e *transientErr) Error() string   { return e.msg }
func (e *transientErr) Retryable() bool { return true }

// permanentErr is a non-retryable send failure
type permanentErr struct{ msg string }

func (e *permanentErr) Error() string   { return e.msg }
func (e *permanentErr) Retryable() bool { return false }
