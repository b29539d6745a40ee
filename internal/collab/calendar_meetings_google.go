package collab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// GoogleClientMeetingsProvider implements ClientMeetingsProvider against
// the events.list API: every event in the window is split by whether
// the requesting client appears as an attendee, grounded on the
// teacher's getGoogleAgendaEvents.
type GoogleClientMeetingsProvider struct {
	Secrets         SecretStore
	CalendarID      func(hostID string) (string, bool)
	TokenSecretName func(hostID string) string
	HTTPClient      *http.Client
	// Endpoint overrides the events.list base URL; empty means the real
	// Google endpoint.
	Endpoint string
}

const googleEventsEndpointTemplate = "https://www.googleapis.com/calendar/v3/calendars/%s/events"

// googleAttendee is one events.list attendee entry; responseStatus is
// "accepted", "declined", "tentative" or "needsAction".
type googleAttendee struct {
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus"`
}

func (g GoogleClientMeetingsProvider) LookupClientMeetings(ctx context.Context, hostID, clientEmail string, start, end time.Time) ([]ClientMeeting, []BusyInterval, error) {
	calendarID, ok := g.CalendarID(hostID)
	if !ok {
		return nil, nil, fmt.Errorf("collab: no google calendar configured for host %q", hostID)
	}
	token, err := g.Secrets.GetSecret(ctx, g.TokenSecretName(hostID))
	if err != nil {
		return nil, nil, fmt.Errorf("collab: resolving google token for host %q: %w", hostID, err)
	}

	base := g.Endpoint
	if base == "" {
		base = fmt.Sprintf(googleEventsEndpointTemplate, url.PathEscape(calendarID))
	}
	query := url.Values{}
	query.Set("timeMin", start.Format(time.RFC3339))
	query.Set("timeMax", end.Format(time.RFC3339))
	query.Set("singleEvents", "true")
	query.Set("orderBy", "startTime")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("collab: google events.list returned status %d", resp.StatusCode)
	}

	var result struct {
		Items []struct {
			Summary string `json:"summary"`
			Start   struct {
				DateTime string `json:"dateTime"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
			} `json:"end"`
			Attendees []googleAttendee `json:"attendees"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, err
	}

	var meetings []ClientMeeting
	var nonClientBusy []BusyInterval
	for _, item := range result.Items {
		startTime, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		endTime, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}

		clientAttendee, found := findAttendee(item.Attendees, clientEmail)
		if !found {
			nonClientBusy = append(nonClientBusy, BusyInterval{Start: startTime, End: endTime})
			continue
		}

		meetings = append(meetings, ClientMeeting{
			Start:                 startTime,
			End:                   endTime,
			Title:                 item.Summary,
			AdvisorResponseStatus: normalizeResponseStatus(clientAttendee.ResponseStatus),
		})
	}

	return meetings, nonClientBusy, nil
}

func findAttendee(attendees []googleAttendee, email string) (googleAttendee, bool) {
	for _, a := range attendees {
		if strings.EqualFold(a.Email, email) {
			return a, true
		}
	}
	return googleAttendee{}, false
}

func normalizeResponseStatus(status string) string {
	if status == "accepted" {
		return "accepted"
	}
	return "pending"
}
