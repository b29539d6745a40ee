package store

import "time"

// AccessState mirrors the spec's per-client visibility state: a
// blocked or deleted client gets a denial message instead of a slot
// search, same three-state shape as the teacher's host onboarding flag.
type AccessState string

const (
	AccessActive  AccessState = "active"
	AccessBlocked AccessState = "blocked"
	AccessDeleted AccessState = "deleted"
)

// Advisor is the scheduled party: owns the calendar, the portal
// session, and the default advising-day set every client inherits
// unless a policy or per-client override replaces it.
type Advisor struct {
	ID               string
	Email            string
	DisplayName      string
	Timezone         string
	AdvisingWeekdays []time.Weekday
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Client is the inbound requester of a meeting, scoped to a single
// advisor. AccessState gates the denial path in the orchestrator;
// InteractionCount is the best-effort counter bumped on every email.
type Client struct {
	ID               string
	AdvisorID        string
	Email            string
	DisplayName      string
	AccessState      AccessState
	AdvisingWeekdays []time.Weekday // nil means "inherit from policy/advisor"
	PolicyID         *string        // nil means no policy assigned
	InteractionCount int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Policy is a named advising-day preset an advisor can assign to a
// group of clients, sitting between the advisor default and a
// per-client override in the precedence chain from spec §4.5 step 4.
type Policy struct {
	ID               string
	AdvisorID        string
	Name             string
	AdvisingWeekdays []time.Weekday
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Connection is a calendar-provider OAuth binding: which advisor, which
// provider, which remote calendar, and the name of the secret holding
// the refresh token. The orchestrator never touches the token itself.
type Connection struct {
	ID               string
	AdvisorID        string
	Provider         string
	RemoteCalendarID string
	TokenSecretName  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
