package collab

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// GoogleCalendarProvider reports a host's busy time via the Google
// Calendar freeBusy API, the same endpoint and request shape as the
// teacher's CalendarService.getGoogleBusyTimes. Access tokens are
// resolved per host through Secrets, one secret name per host ID,
// rather than held on a stored model as the teacher does, since this
// collaborator has no database of its own.
type GoogleCalendarProvider struct {
	Secrets         SecretStore
	CalendarID      func(hostID string) (string, bool)
	TokenSecretName func(hostID string) string
	HTTPClient      *http.Client
	// Endpoint overrides the freeBusy URL; empty means the real
	// Google endpoint.
	Endpoint string
}

const googleFreeBusyEndpoint = "https://www.googleapis.com/calendar/v3/freeBusy"

func (g GoogleCalendarProvider) GetBusyTimes(ctx context.Context, hostID string, start, end time.Time) ([]BusyInterval, error) {
	calendarID, ok := g.CalendarID(hostID)
	if !ok {
		return nil, fmt.Errorf("collab: no google calendar configured for host %q", hostID)
	}

	token, err := g.Secrets.GetSecret(ctx, g.TokenSecretName(hostID))
	if err != nil {
		return nil, fmt.Errorf("collab: resolving google token for host %q: %w", hostID, err)
	}

	payload, err := json.Marshal(map[string]any{
		"timeMin": start.Format(time.RFC3339),
		"timeMax": end.Format(time.RFC3339),
		"items":   []map[string]string{{"id": calendarID}},
	})
	if err != nil {
		return nil, err
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = googleFreeBusyEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collab: google freeBusy returned status %d", resp.StatusCode)
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var busy []BusyInterval
	calData, ok := result.Calendars[calendarID]
	if !ok {
		return busy, nil
	}
	for _, b := range calData.Busy {
		startTime, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			continue
		}
		endTime, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			continue
		}
		busy = append(busy, BusyInterval{Start: startTime, End: endTime})
	}
	return busy, nil
}
