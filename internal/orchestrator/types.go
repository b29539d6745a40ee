// Package orchestrator wires the pure C1-C6 components together into
// the end-to-end email scheduling pipeline: parse the inbound email,
// fetch the host's busy time, generate candidate slots, draft a reply,
// allocate an availability link, send mail, and leave a trace of every
// step taken. Process is the only entry point; everything else in this
// package exists to make it testable in isolation from real AWS/SMTP.
package orchestrator

import (
	"time"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/intent"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
	"github.com/advisorflow/scheduling-agent/internal/slots"
)

// Env is the per-deployment configuration Process needs; it holds no
// secrets (those come through collab.SecretStore).
type Env struct {
	FallbackTimezone       string
	DefaultDurationMinutes int
	MaxDurationMinutes     int
	AdvisingWeekdays       map[time.Weekday]bool
	WorkdayStartMinutes    int
	WorkdayEndMinutes      int
	SlotMinutes            int
	MaxGridCells           int
	SearchDays             int
	MaxSuggestions         int
	LinkTTL                time.Duration
	IdempotencyTTL         time.Duration
	SenderEmail            string
	SenderName             string
	BaseURL                string

	// ResponseMode gates step 12: "send" dispatches via the mailer
	// collaborator, anything else just logs the draft as generated.
	ResponseMode string
	// IntentExtractionMode switches on the step-5 LLM hybrid merge when
	// set to "llm_hybrid"; any other value (including empty) uses the
	// deterministic parser alone.
	IntentExtractionMode string
	// IntentConfidenceThreshold is the step-5 merge threshold; 0 means
	// use the spec default of 0.65.
	IntentConfidenceThreshold float64
}

const defaultIntentConfidenceThreshold = 0.65

// linkTTLFloor and linkTTLCeiling bound step 10's allocated link TTL
// regardless of what env.LinkTTL is configured to.
const (
	linkTTLFloor   = 15 * time.Minute
	linkTTLCeiling = 14 * 24 * time.Hour
)

func clampLinkTTL(ttl time.Duration) time.Duration {
	if ttl < linkTTLFloor {
		return linkTTLFloor
	}
	if ttl > linkTTLCeiling {
		return linkTTLCeiling
	}
	return ttl
}

// Collaborators bundles every external dependency the pipeline calls
// out to, so Process takes one argument instead of six.
type Collaborators struct {
	Calendar  collab.CalendarProvider
	Meetings  collab.ClientMeetingsProvider
	Mailer    collab.Mailer
	Llm       collab.LlmClient
	IntentLlm collab.IntentExtractor
	RawEmails collab.RawEmailObjectStore
	Links     linkstore.Store
	KV        collab.KeyValueStore
	Traces    collab.TraceStore
	Clients   collab.ClientProfileStore
	Advisors  collab.AdvisorProfileStore
	Policies  collab.PolicyStore
}

// EmailPayload is the inbound message as received from the mail
// ingestion webhook.
type EmailPayload struct {
	MessageID string `json:"messageId"`
	HostID    string `json:"hostId"`
	From      string `json:"fromEmail"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Raw       []byte `json:"raw,omitempty"`
}

// StepOutcome records one named pipeline step for the trace.
type StepOutcome struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// TraceData is the metadata-only record persisted per request: ids,
// status, stage tags and counters. It must never carry raw email text,
// subject, body or event titles (spec §4.5 step 13 / §7).
type TraceData struct {
	RequestID       string          `json:"requestId"`
	ResponseID      string          `json:"responseId"`
	AdvisorID       string          `json:"advisorId"`
	Status          string          `json:"status"`
	Stage           string          `json:"stage,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	IntentSource    string          `json:"intentSource,omitempty"`
	LlmStatus       string          `json:"llmStatus,omitempty"`
	SuggestionCount int             `json:"suggestionCount"`
	LinkTTLSeconds  int             `json:"linkTtlSeconds,omitempty"`
	Steps           []StepOutcome   `json:"steps"`
	Feedback        *FeedbackRecord `json:"feedback,omitempty"`
	FeedbackCount   int             `json:"feedbackCount,omitempty"`
}

// FeedbackRecord is the client/advisor/system reaction to a response,
// attached to its trace by the feedback path.
type FeedbackRecord struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// Result is what Process hands back to the HTTP layer.
type Result struct {
	StatusCode      int           `json:"status_code"`
	RequestID       string        `json:"request_id"`
	ResponseID      string        `json:"response_id,omitempty"`
	AlreadyHandled  bool          `json:"already_handled"`
	AccessDenied    bool          `json:"access_denied,omitempty"`
	AccessState     string        `json:"access_state,omitempty"`
	DeliveryStatus  string        `json:"delivery_status,omitempty"`
	LlmStatus       string        `json:"llm_status,omitempty"`
	IntentSource    string        `json:"intent_source,omitempty"`
	Error           string        `json:"error,omitempty"`
	Intent          intent.Record `json:"intent"`
	Slots           []slots.Slot  `json:"slots"`
	LinkToken       string        `json:"link_token,omitempty"`
	DraftBody       string        `json:"draft_body,omitempty"`
	Steps           []StepOutcome `json:"steps"`
}

// FeedbackPayload is the inbound POST /spike/feedback body.
type FeedbackPayload struct {
	RequestID      string `json:"requestId"`
	ResponseID     string `json:"responseId"`
	FeedbackType   string `json:"feedbackType"`
	FeedbackReason string `json:"feedbackReason"`
	FeedbackSource string `json:"feedbackSource"`
}

// FeedbackResult is what ProcessFeedback hands back to the HTTP layer.
type FeedbackResult struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

var validFeedbackTypes = map[string]bool{
	"incorrect": true, "odd": true, "helpful": true, "other": true,
}

var validFeedbackReasons = map[string]bool{
	"availability_mismatch": true, "timezone_issue": true, "tone_quality": true,
	"latency": true, "other": true,
}

var validFeedbackSources = map[string]bool{
	"client": true, "advisor": true, "system": true,
}
