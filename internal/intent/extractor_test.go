package intent

import "testing"

func TestExtract_ISOOverridesNaturalLanguage(t *testing.T) {
	body := "I prefer 2026-02-20T18:00:00Z to 2026-02-20T20:00:00Z, though Wednesday afternoon could also work."
	rec := Extract("Scheduling request", body, "client@example.com", "2026-02-17T09:00:00-08:00", "UTC", 30)

	if len(rec.RequestedWindows) != 1 {
		t.Fatalf("want 1 window, got %d: %+v", len(rec.RequestedWindows), rec.RequestedWindows)
	}
	got := rec.RequestedWindows[0]
	if got.StartISO != "2026-02-20T18:00:00Z" || got.EndISO != "2026-02-20T20:00:00Z" {
		t.Fatalf("unexpected window: %+v", got)
	}
}

func TestExtract_WeekdayWithTimeRange(t *testing.T) {
	body := "Wednesday between 2pm and 4pm works for me. Timezone: America/Los_Angeles"
	rec := Extract("Scheduling request", body, "client@example.com", "2026-02-16T09:00:00-08:00", "UTC", 30)

	if len(rec.RequestedWindows) != 1 {
		t.Fatalf("want 1 window, got %d: %+v", len(rec.RequestedWindows), rec.RequestedWindows)
	}
	got := rec.RequestedWindows[0]
	if got.StartISO != "2026-02-18T22:00:00Z" || got.EndISO != "2026-02-19T00:00:00Z" {
		t.Fatalf("unexpected window: %+v", got)
	}
	if rec.ClientTimezone == nil || *rec.ClientTimezone != "America/Los_Angeles" {
		t.Fatalf("unexpected client timezone: %v", rec.ClientTimezone)
	}
}

func TestExtract_NextWeekWeekdayAddsSevenDays(t *testing.T) {
	body := "next week Wednesday between 2pm and 4pm please. Timezone: America/Los_Angeles"
	rec := Extract("Scheduling request", body, "client@example.com", "2026-02-17T09:00:00-08:00", "UTC", 30)

	if len(rec.RequestedWindows) != 1 {
		t.Fatalf("want 1 window, got %d: %+v", len(rec.RequestedWindows), rec.RequestedWindows)
	}
	got := rec.RequestedWindows[0]
	if got.StartISO != "2026-02-25T22:00:00Z" || got.EndISO != "2026-02-26T00:00:00Z" {
		t.Fatalf("unexpected window: %+v", got)
	}
}

func TestExtract_DurationAndMeetingType(t *testing.T) {
	rec := Extract("Quick sync", "Could we do a 45 minute call, in-person at your office?", "client@example.com", "2026-02-17T09:00:00-08:00", "UTC", 30)

	if rec.DurationMinutes != 45 {
		t.Fatalf("want duration 45, got %d", rec.DurationMinutes)
	}
	if rec.MeetingType != MeetingInPerson {
		t.Fatalf("want in_person, got %s", rec.MeetingType)
	}
}

func TestExtract_DurationDefaultsWhenAbsent(t *testing.T) {
	rec := Extract("Quick sync", "Let's find some time next week.", "client@example.com", "2026-02-17T09:00:00-08:00", "UTC", 30)

	if rec.DurationMinutes != 30 {
		t.Fatalf("want default duration 30, got %d", rec.DurationMinutes)
	}
	if rec.MeetingType != MeetingOnline {
		t.Fatalf("want online, got %s", rec.MeetingType)
	}
}

func TestExtract_TimezoneAbbreviationFallback(t *testing.T) {
	rec := Extract("Scheduling request", "Anytime after 3pm EST works.", "client@example.com", "2026-02-17T09:00:00-08:00", "UTC", 30)

	if rec.ClientTimezone == nil || *rec.ClientTimezone != "America/New_York" {
		t.Fatalf("unexpected client timezone: %v", rec.ClientTimezone)
	}
}

func TestExtract_InvalidReferenceNowYieldsNoNLWindows(t *testing.T) {
	rec := Extract("Scheduling request", "Wednesday between 2pm and 4pm.", "client@example.com", "not-a-timestamp", "UTC", 30)

	if len(rec.RequestedWindows) != 0 {
		t.Fatalf("want no windows, got %+v", rec.RequestedWindows)
	}
}
