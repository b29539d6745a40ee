package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeSecretStore struct {
	values map[string]string
}

func (f fakeSecretStore) GetSecret(ctx context.Context, name string) (string, error) {
	return f.values[name], nil
}

func TestGoogleCalendarProvider_ParsesBusyIntervals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"calendars": {
				"cal-1": {
					"busy": [
						{"start": "2026-02-18T14:00:00Z", "end": "2026-02-18T15:00:00Z"}
					]
				}
			}
		}`))
	}))
	defer server.Close()

	provider := GoogleCalendarProvider{
		Secrets:         fakeSecretStore{values: map[string]string{"token:host-1": "test-token"}},
		CalendarID:      mapLookup(map[string]string{"host-1": "cal-1"}),
		TokenSecretName: func(hostID string) string { return "token:" + hostID },
		Endpoint:        server.URL,
	}

	busy, err := provider.GetBusyTimes(context.Background(), "host-1", time.Now(), time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetBusyTimes: %v", err)
	}
	if len(busy) != 1 {
		t.Fatalf("got %d busy intervals, want 1", len(busy))
	}
	if !busy[0].Start.Equal(time.Date(2026, 2, 18, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start: %v", busy[0].Start)
	}
	if !busy[0].End.Equal(time.Date(2026, 2, 18, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end: %v", busy[0].End)
	}
}

func TestGoogleCalendarProvider_ErrorsForUnconfiguredHost(t *testing.T) {
	provider := GoogleCalendarProvider{
		Secrets:         fakeSecretStore{},
		CalendarID:      mapLookup(map[string]string{}),
		TokenSecretName: func(hostID string) string { return "token:" + hostID },
	}

	_, err := provider.GetBusyTimes(context.Background(), "unknown-host", time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected error for unconfigured host")
	}
}

// mapLookup adapts a static hostID->calendarID map to the CalendarID
// resolver signature, used by tests in place of a connections-table lookup.
func mapLookup(ids map[string]string) func(string) (string, bool) {
	return func(hostID string) (string, bool) {
		id, ok := ids[hostID]
		return id, ok
	}
}
