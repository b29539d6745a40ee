package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (f *fakeKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

type fakeTraceStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeTraceStore() *fakeTraceStore { return &fakeTraceStore{data: make(map[string][]byte)} }

func (f *fakeTraceStore) Put(ctx context.Context, requestID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[requestID] = data
	return nil
}

func (f *fakeTraceStore) Get(ctx context.Context, requestID string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[requestID]
	return v, ok, nil
}

type fakeCalendar struct {
	busy []collab.BusyInterval
}

func (f fakeCalendar) GetBusyTimes(ctx context.Context, hostID string, start, end time.Time) ([]collab.BusyInterval, error) {
	return f.busy, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+subject)
	return nil
}

type fakeLinkBackend struct {
	mu      sync.Mutex
	records map[string]linkstore.Record
}

func newFakeLinkBackend() *fakeLinkBackend {
	return &fakeLinkBackend{records: make(map[string]linkstore.Record)}
}

func (b *fakeLinkBackend) PutIfAbsent(ctx context.Context, token string, record linkstore.Record) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.records[token]; ok {
		return false, nil
	}
	b.records[token] = record
	return true, nil
}

func (b *fakeLinkBackend) Get(ctx context.Context, token string) (linkstore.Record, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[token]
	return r, ok, nil
}

func (b *fakeLinkBackend) MarkClaimed(ctx context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.records[token]
	if !ok || r.Claimed {
		return false, nil
	}
	r.Claimed = true
	b.records[token] = r
	return true, nil
}

func testEnv() Env {
	return Env{
		FallbackTimezone:       "America/Los_Angeles",
		DefaultDurationMinutes: 30,
		MaxDurationMinutes:     120,
		AdvisingWeekdays: map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true,
			time.Thursday: true, time.Friday: true,
		},
		WorkdayStartMinutes: 9 * 60,
		WorkdayEndMinutes:   17 * 60,
		SearchDays:          14,
		MaxSuggestions:      5,
		LinkTTL:             time.Hour,
		IdempotencyTTL:      24 * time.Hour,
		BaseURL:             "https://schedule.example.com",
		ResponseMode:        "send",
		SenderEmail:         "advisor@example.com",
		SenderName:          "Advisor",
	}
}

func fixedNow() time.Time {
	t, _ := time.Parse(time.RFC3339, "2026-02-17T09:00:00-08:00")
	return t
}

type fakeClientStore struct {
	profiles map[string]collab.ClientProfile
	bumped   []string
}

func (f *fakeClientStore) GetByAdvisorAndEmail(ctx context.Context, advisorID, email string) (*collab.ClientProfile, error) {
	p, ok := f.profiles[advisorID+"|"+email]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (f *fakeClientStore) IncrementInteractionCount(ctx context.Context, id string) error {
	f.bumped = append(f.bumped, id)
	return nil
}

type fakeCalendarError struct{}

func (fakeCalendarError) GetBusyTimes(ctx context.Context, hostID string, start, end time.Time) ([]collab.BusyInterval, error) {
	return nil, fmt.Errorf("calendar unavailable")
}

type fakeIntentLlm struct {
	result collab.IntentExtractionResult
	err    error
}

func (f fakeIntentLlm) ExtractIntent(ctx context.Context, req collab.IntentExtractionRequest) (collab.IntentExtractionResult, error) {
	return f.result, f.err
}

func TestProcess_ProducesSlotsAndSendsReply(t *testing.T) {
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
	}
	payload := EmailPayload{
		MessageID: "msg-1",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works. Timezone: America/Los_Angeles",
	}

	result := Process(context.Background(), payload, testEnv(), collabs, fixedNow)

	if result.AlreadyHandled {
		t.Fatal("first call should not be already-handled")
	}
	if len(result.Slots) == 0 {
		t.Fatal("expected at least one generated slot")
	}
	if result.LinkToken == "" {
		t.Fatal("expected a link token to be allocated")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("want 1 sent email, got %d", len(mailer.sent))
	}
}

func TestProcess_IdempotentOnRepeatMessageID(t *testing.T) {
	kv := newFakeKV()
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       kv,
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
	}
	payload := EmailPayload{
		MessageID: "msg-dup",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	first := Process(context.Background(), payload, testEnv(), collabs, fixedNow)
	second := Process(context.Background(), payload, testEnv(), collabs, fixedNow)

	if first.AlreadyHandled {
		t.Fatal("first call should not be already-handled")
	}
	if !second.AlreadyHandled {
		t.Fatal("second call with the same message ID should be already-handled")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("want exactly 1 sent email across both calls, got %d", len(mailer.sent))
	}
}

func TestProcess_NoSlotsStillRepliesWithoutLink(t *testing.T) {
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
	}
	payload := EmailPayload{
		MessageID: "msg-2",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "I'm only free on Sundays at 3am.",
	}

	env := testEnv()
	env.AdvisingWeekdays = map[time.Weekday]bool{}

	result := Process(context.Background(), payload, env, collabs, fixedNow)
	if len(result.Slots) != 0 {
		t.Fatalf("want no slots, got %+v", result.Slots)
	}
	if result.LinkToken != "" {
		t.Fatal("want no link token when there are no slots")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("want 1 sent email even with no slots, got %d", len(mailer.sent))
	}
}

func TestProcess_BlockedClientIsDenied(t *testing.T) {
	mailer := &fakeMailer{}
	clients := &fakeClientStore{profiles: map[string]collab.ClientProfile{
		"host-1|client@example.com": {ID: "c-1", AccessState: "blocked"},
	}}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
		Clients:  clients,
	}
	payload := EmailPayload{
		MessageID: "msg-3",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	result := Process(context.Background(), payload, testEnv(), collabs, fixedNow)

	if !result.AccessDenied {
		t.Fatal("want access denied for a blocked client")
	}
	if result.AccessState != "blocked" {
		t.Fatalf("want access state 'blocked', got %q", result.AccessState)
	}
	if len(result.Slots) != 0 {
		t.Fatal("a denied request should never generate slots")
	}
}

func TestProcess_DurationOverLimitReturns400(t *testing.T) {
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
	}
	payload := EmailPayload{
		MessageID: "msg-4",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "I need a 300 minute meeting Wednesday between 2pm and 4pm.",
	}

	result := Process(context.Background(), payload, testEnv(), collabs, fixedNow)

	if result.StatusCode != 400 {
		t.Fatalf("want 400 for an over-limit duration, got %d", result.StatusCode)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("an over-limit request should never dispatch a reply")
	}
}

func TestProcess_CalendarLookupFailureReturns500(t *testing.T) {
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendarError{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
	}
	payload := EmailPayload{
		MessageID: "msg-5",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	result := Process(context.Background(), payload, testEnv(), collabs, fixedNow)

	if result.StatusCode != 500 {
		t.Fatalf("want 500 on a calendar lookup failure, got %d", result.StatusCode)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("a failed calendar lookup should never dispatch a reply")
	}
}

func TestProcess_LlmHybridMergeOverridesWhenParserFoundNothing(t *testing.T) {
	mailer := &fakeMailer{}
	llm := fakeIntentLlm{result: collab.IntentExtractionResult{
		RequestedWindows: []collab.IntentWindow{
			{StartISO: "2026-02-18T22:00:00Z", EndISO: "2026-02-19T00:00:00Z"},
		},
		DurationMinutes: 30,
		Confidence:      0.9,
	}}
	collabs := Collaborators{
		Calendar:  fakeCalendar{},
		Mailer:    mailer,
		KV:        newFakeKV(),
		Links:     linkstore.NewStore(newFakeLinkBackend(), 16),
		IntentLlm: llm,
	}
	payload := EmailPayload{
		MessageID: "msg-6",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "let's find some time soon, whatever works for you",
	}

	env := testEnv()
	env.IntentExtractionMode = "llm_hybrid"

	result := Process(context.Background(), payload, env, collabs, fixedNow)

	if result.IntentSource != "llm" {
		t.Fatalf("want intentSource 'llm' when the parser found nothing, got %q", result.IntentSource)
	}
}

func TestProcess_InjectsGreetingAndSignOff(t *testing.T) {
	mailer := &fakeMailer{}
	clients := &fakeClientStore{profiles: map[string]collab.ClientProfile{
		"host-1|client@example.com": {ID: "c-1", AccessState: "active", DisplayName: "Jamie"},
	}}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
		Clients:  clients,
	}
	payload := EmailPayload{
		MessageID: "msg-7",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	env := testEnv()
	env.SenderName = "Morgan"

	result := Process(context.Background(), payload, env, collabs, fixedNow)

	if !strings.Contains(result.DraftBody, "Hi Jamie,") {
		t.Fatalf("want a greeting addressed to the client, got: %s", result.DraftBody)
	}
	if !strings.Contains(result.DraftBody, "Best regards,\nMorgan") {
		t.Fatalf("want a sign-off with the advisor's name, got: %s", result.DraftBody)
	}
}

func TestProcess_LinkTTLIsClampedToSpecBounds(t *testing.T) {
	mailer := &fakeMailer{}
	links := linkstore.NewStore(newFakeLinkBackend(), 16)
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    links,
	}
	payload := EmailPayload{
		MessageID: "msg-8",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	env := testEnv()
	env.LinkTTL = time.Minute // below the 15-minute floor

	result := Process(context.Background(), payload, env, collabs, fixedNow)
	if result.LinkToken == "" {
		t.Fatal("expected a link token")
	}

	record, err := links.Resolve(context.Background(), result.LinkToken)
	if err != nil {
		t.Fatalf("expected to resolve the allocated token: %v", err)
	}
	if record.ExpiresAt.Sub(record.CreatedAt) < 14*time.Minute {
		t.Fatalf("want the link TTL clamped up to the 15-minute floor, got %v", record.ExpiresAt.Sub(record.CreatedAt))
	}
}

func TestProcessFeedback_AttachesFeedbackWhenTraceMatches(t *testing.T) {
	mailer := &fakeMailer{}
	collabs := Collaborators{
		Calendar: fakeCalendar{},
		Mailer:   mailer,
		KV:       newFakeKV(),
		Links:    linkstore.NewStore(newFakeLinkBackend(), 16),
		Traces:   newFakeTraceStore(),
	}
	payload := EmailPayload{
		MessageID: "msg-9",
		HostID:    "host-1",
		From:      "client@example.com",
		Subject:   "Scheduling request",
		Body:      "Wednesday between 2pm and 4pm works.",
	}

	env := testEnv()
	result := Process(context.Background(), payload, env, collabs, fixedNow)

	fb := ProcessFeedback(context.Background(), FeedbackPayload{
		RequestID:      result.RequestID,
		ResponseID:     result.ResponseID,
		FeedbackType:   "helpful",
		FeedbackReason: "other",
		FeedbackSource: "client",
	}, env, collabs)

	if fb.StatusCode != 200 {
		t.Fatalf("want 200 for a matching trace, got %d (%s)", fb.StatusCode, fb.Error)
	}
}

func TestProcessFeedback_404sWhenNoTraceMatches(t *testing.T) {
	collabs := Collaborators{KV: newFakeKV()}
	env := testEnv()

	fb := ProcessFeedback(context.Background(), FeedbackPayload{
		RequestID:      "does-not-exist",
		ResponseID:     "does-not-exist",
		FeedbackType:   "helpful",
		FeedbackReason: "other",
		FeedbackSource: "client",
	}, env, collabs)

	if fb.StatusCode != 404 {
		t.Fatalf("want 404 when no trace matches, got %d", fb.StatusCode)
	}
}

func TestProcessFeedback_400sOnInvalidEnum(t *testing.T) {
	collabs := Collaborators{KV: newFakeKV()}
	env := testEnv()

	fb := ProcessFeedback(context.Background(), FeedbackPayload{
		RequestID:      "r",
		ResponseID:     "s",
		FeedbackType:   "not-a-real-type",
		FeedbackReason: "other",
		FeedbackSource: "client",
	}, env, collabs)

	if fb.StatusCode != 400 {
		t.Fatalf("want 400 on an invalid feedback type, got %d", fb.StatusCode)
	}
}
