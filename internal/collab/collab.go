// Package collab defines the capability interfaces the orchestrator
// depends on for everything outside its own pure logic, plus concrete
// adapters onto AWS, SMTP and a JSON-speaking LLM collaborator. Every
// interface here is small and single-purpose so a test double can
// implement it without pulling in any real dependency.
package collab

import (
	"context"
	"time"
)

// SecretStore resolves named secrets (signing keys, API credentials)
// without the orchestrator ever holding a live client connection.
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// KeyValueStore is the generic persistence seam for idempotency
// records, traces and anything else keyed by a single string.
type KeyValueStore interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// PutIfAbsent backs at-most-once message processing: it writes
	// value only if key doesn't already exist, reporting which
	// happened so the caller can tell "I own this" from "someone else
	// already claimed it".
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)
}

// TraceStore persists the per-request trace blob the orchestrator
// builds at the end of Process, and resolves it back by request id for
// the feedback path's (requestId, responseId) lookup.
type TraceStore interface {
	Put(ctx context.Context, requestID string, data []byte) error
	Get(ctx context.Context, requestID string) ([]byte, bool, error)
}

// BusyInterval is a UTC busy range reported by a calendar provider.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// CalendarProvider reports a host's busy time over a UTC range.
type CalendarProvider interface {
	GetBusyTimes(ctx context.Context, hostID string, start, end time.Time) ([]BusyInterval, error)
}

// Mailer sends plain-text email, matching the one channel the booking
// flow actually uses.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DraftRequest is what the orchestrator asks the LLM collaborator to
// turn into client-facing prose.
type DraftRequest struct {
	ClientName      string
	MeetingType     string
	DurationMinutes int
	SlotsLocal      []string // pre-formatted, in the client's timezone
	ClientTimezone  string
}

// LlmClient drafts the scheduling reply email body. Implementations
// must be side-effect free beyond the network call itself; the
// orchestrator treats a failure here as non-fatal and falls back to a
// templated draft.
type LlmClient interface {
	DraftReply(ctx context.Context, req DraftRequest) (string, error)
}

// RawEmailObjectStore archives the raw inbound email payload for
// audit/replay, keyed by an opaque object key the caller chooses.
// Delete backs the orchestrator's best-effort cleanup once a raw MIME
// body has been fetched and folded into the intent pipeline.
type RawEmailObjectStore interface {
	Put(ctx context.Context, key string, raw []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// IntentWindow mirrors package intent's Window without creating a
// dependency on it: a client-stated candidate time range, ISO-8601
// with offset.
type IntentWindow struct {
	StartISO string
	EndISO   string
}

// IntentExtractionRequest is what the orchestrator asks an LLM-backed
// intent extractor to parse, under INTENT_EXTRACTION_MODE=llm_hybrid.
type IntentExtractionRequest struct {
	Subject          string
	Body             string
	ReferenceNowISO  string
	FallbackTimezone string
}

// IntentExtractionResult is the LLM collaborator's best-effort parse.
// Confidence gates whether the orchestrator prefers it over the
// deterministic parser's result.
type IntentExtractionResult struct {
	ClientTimezone   string
	DurationMinutes  int
	MeetingType      string
	RequestedWindows []IntentWindow
	Confidence       float64
}

// IntentExtractor is an LLM collaborator attempting the same
// subject+body → structured intent parse C2 performs deterministically.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, req IntentExtractionRequest) (IntentExtractionResult, error)
}

// ClientProfile is the per-client visibility and advising-day metadata
// the orchestrator consults on every inbound email.
type ClientProfile struct {
	ID               string
	AccessState      string // active, blocked, deleted
	DisplayName      string
	AdvisingWeekdays []time.Weekday // nil means "inherit from policy/advisor"
	PolicyID         string         // empty means no policy assigned
}

// ClientProfileStore resolves a client's profile by advisor+email and
// bumps its best-effort interaction counter.
type ClientProfileStore interface {
	GetByAdvisorAndEmail(ctx context.Context, advisorID, email string) (*ClientProfile, error)
	IncrementInteractionCount(ctx context.Context, id string) error
}

// AdvisorProfile is the advisor-level defaults the orchestrator falls
// back to when a client has no per-client or policy override.
type AdvisorProfile struct {
	ID               string
	DisplayName      string
	Timezone         string
	AdvisingWeekdays []time.Weekday
}

// AdvisorProfileStore resolves an advisor's profile by id.
type AdvisorProfileStore interface {
	GetByID(ctx context.Context, id string) (*AdvisorProfile, error)
}

// PolicyProfile is a named advising-day preset sitting between a
// client override and the advisor default.
type PolicyProfile struct {
	ID               string
	AdvisingWeekdays []time.Weekday
}

// PolicyStore resolves a policy preset by id.
type PolicyStore interface {
	GetByID(ctx context.Context, id string) (*PolicyProfile, error)
}

// ClientMeeting is a calendar item where the requesting client is an
// attendee, as reported by a ClientMeetingsProvider. AdvisorResponseStatus
// is "accepted" or "pending".
type ClientMeeting struct {
	Start                 time.Time
	End                   time.Time
	Title                 string
	AdvisorResponseStatus string
}

// ClientMeetingsProvider backs the availability view's grid build: it
// splits a host's busy time over a window into meetings the requesting
// client is attending versus everything else, so the grid can show the
// client their own meetings distinctly from opaque busy time.
type ClientMeetingsProvider interface {
	LookupClientMeetings(ctx context.Context, hostID, clientEmail string, start, end time.Time) (meetings []ClientMeeting, nonClientBusy []BusyInterval, err error)
}
