package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
	"github.com/advisorflow/scheduling-agent/internal/orchestrator"
)

type fakeLinkBackend struct {
	mu      sync.Mutex
	records map[string]linkstore.Record
}

func newFakeLinkBackend() *fakeLinkBackend {
	return &fakeLinkBackend{records: make(map[string]linkstore.Record)}
}

func (f *fakeLinkBackend) PutIfAbsent(ctx context.Context, token string, record linkstore.Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.records[token]; exists {
		return false, nil
	}
	f.records[token] = record
	return true, nil
}

func (f *fakeLinkBackend) Get(ctx context.Context, token string) (linkstore.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[token]
	return rec, ok, nil
}

func (f *fakeLinkBackend) MarkClaimed(ctx context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[token]
	if !ok || rec.Claimed {
		return false, nil
	}
	rec.Claimed = true
	f.records[token] = rec
	return true, nil
}

func TestRouter_HealthCheck(t *testing.T) {
	router := NewRouter(Deps{Links: linkstore.NewStore(newFakeLinkBackend(), 16)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

func TestRouter_AvailabilityLinkRoundTrip(t *testing.T) {
	backend := newFakeLinkBackend()
	links := linkstore.NewStore(backend, 16)
	token, err := links.Allocate(context.Background(), linkstore.AllocateInput{
		LinkID: "link-1", AdvisorID: "advisor-1", ClientEmail: "client@example.com",
		DurationMinutes: 30, TTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	router := NewRouter(Deps{Links: links})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/availability/"+token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
}

type fakeCalendar struct {
	busy []collab.BusyInterval
}

func (f fakeCalendar) GetBusyTimes(ctx context.Context, hostID string, start, end time.Time) ([]collab.BusyInterval, error) {
	return f.busy, nil
}

type fakeMeetings struct {
	meetings      []collab.ClientMeeting
	nonClientBusy []collab.BusyInterval
}

func (f fakeMeetings) LookupClientMeetings(ctx context.Context, hostID, clientEmail string, start, end time.Time) ([]collab.ClientMeeting, []collab.BusyInterval, error) {
	return f.meetings, f.nonClientBusy, nil
}

func TestRouter_AvailabilityLinkRendersGrid(t *testing.T) {
	backend := newFakeLinkBackend()
	links := linkstore.NewStore(backend, 16)
	token, err := links.Allocate(context.Background(), linkstore.AllocateInput{
		LinkID: "link-2", AdvisorID: "advisor-1", ClientEmail: "client@example.com",
		DurationMinutes: 30, TTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	router := NewRouter(Deps{
		Links: links,
		Env:   orchestrator.Env{FallbackTimezone: "UTC", AdvisingWeekdays: map[time.Weekday]bool{time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true, time.Saturday: true, time.Sunday: true}, WorkdayStartMinutes: 9 * 60, WorkdayEndMinutes: 17 * 60, SearchDays: 1},
		Collaborators: orchestrator.Collaborators{
			Calendar: fakeCalendar{},
			Meetings: fakeMeetings{},
		},
		Now: func() time.Time { return time.Date(2026, 2, 18, 8, 0, 0, 0, time.UTC) },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/availability/"+token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "\"rows\"") {
		t.Fatalf("response missing rendered grid rows: %s", rec.Body.String())
	}
}

func TestRouter_AvailabilityLinkNotFound(t *testing.T) {
	router := NewRouter(Deps{Links: linkstore.NewStore(newFakeLinkBackend(), 16)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/availability/does-not-exist", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestRouter_InboundEmailTriggersOrchestrator(t *testing.T) {
	links := linkstore.NewStore(newFakeLinkBackend(), 16)
	fixedNow := func() time.Time { return time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC) }

	router := NewRouter(Deps{
		Env:           orchestrator.Env{FallbackTimezone: "UTC", DefaultDurationMinutes: 30, MaxSuggestions: 5},
		Collaborators: orchestrator.Collaborators{Links: links},
		Links:         links,
		Now:           fixedNow,
	})

	body := `{"message_id":"m-1","host_id":"host-1","from":"client@example.com","subject":"Call","body":"Let's talk tomorrow afternoon."}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/email", strings.NewReader(body))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AdvisorRouteRequiresConfiguredAuth(t *testing.T) {
	router := NewRouter(Deps{
		Links:       linkstore.NewStore(newFakeLinkBackend(), 16),
		ResolveMode: func(advisorID string) AuthMode { return AuthSecretBasic },
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/advisor/jane/availability", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}
