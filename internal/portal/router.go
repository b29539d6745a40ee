package portal

import (
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/advisorflow/scheduling-agent/internal/availability"
	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
	"github.com/advisorflow/scheduling-agent/internal/orchestrator"
	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

// AuthModeResolver looks up which auth mode protects an advisor's
// portal routes; advisors default to AuthNone when unknown.
type AuthModeResolver func(advisorID string) AuthMode

// Deps bundles everything the router needs to build handlers.
type Deps struct {
	Env           orchestrator.Env
	Collaborators orchestrator.Collaborators
	Links         linkstore.Store
	// LegacyCodec resolves HMAC tokens issued before the opaque Store
	// existed; nil means no legacy tokens are accepted.
	LegacyCodec   *linkstore.Codec
	ResolveMode   AuthModeResolver
	ResolveSecret SecretResolver
	ValidateOAuth OAuthValidator
	Now           func() time.Time
}

// NewRouter builds the advisor-facing and inbound-email mux. Path
// normalization runs first so every downstream pattern sees a
// canonical path.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /webhook/email", handleInboundEmail(deps))
	mux.HandleFunc("POST /spike/feedback", handleFeedback(deps))
	mux.HandleFunc("GET /availability/{token}", handleAvailabilityLink(deps))
	mux.Handle("GET /advisor/{advisorID}/availability", advisorRoute(deps))

	return normalizingHandler(mux)
}

func normalizingHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = NormalizePath(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func advisorRoute(deps Deps) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		advisorID := r.PathValue("advisorID")

		mode := AuthNone
		if deps.ResolveMode != nil {
			mode = deps.ResolveMode(advisorID)
		}

		handler := RequireAuth(mode, deps.ResolveSecret, deps.ValidateOAuth)(advisorID, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"advisor_id": AdvisorID(r.Context())})
		}))
		handler.ServeHTTP(w, r)
	})
}

func handleInboundEmail(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orchestrator.EmailPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		now := deps.Now
		if now == nil {
			now = time.Now
		}

		result := orchestrator.Process(r.Context(), payload, deps.Env, deps.Collaborators, now)
		writeJSON(w, result.StatusCode, result)
	}
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload orchestrator.FeedbackPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		result := orchestrator.ProcessFeedback(r.Context(), payload, deps.Env, deps.Collaborators)
		writeJSON(w, result.StatusCode, result)
	}
}

// availabilityView is what the public availability page renders: the
// resolved link binding plus the day-by-row grid built from it.
type availabilityView struct {
	Record linkstore.Record  `json:"record"`
	Grid   availability.Grid `json:"grid"`
	Spans  []availability.MergeSpan `json:"spans"`
}

func handleAvailabilityLink(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")

		record, err := resolveAvailabilityToken(deps, r, token)
		switch err {
		case nil:
		case linkstore.ErrTokenNotFound:
			http.Error(w, "not found", http.StatusNotFound)
			return
		case linkstore.ErrTokenExpired:
			http.Error(w, "expired", http.StatusGone)
			return
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		now := deps.Now
		if now == nil {
			now = time.Now
		}
		searchStart := now()
		searchDays := deps.Env.SearchDays
		if searchDays <= 0 {
			searchDays = 14
		}
		searchEnd := searchStart.AddDate(0, 0, searchDays)

		var busyUTC []collab.BusyInterval
		if deps.Collaborators.Calendar != nil {
			busyUTC, _ = deps.Collaborators.Calendar.GetBusyTimes(r.Context(), record.AdvisorID, searchStart, searchEnd)
		}

		var clientMeetings []availability.ClientMeeting
		var nonClientBusy []collab.BusyInterval
		if deps.Collaborators.Meetings != nil {
			meetings, ncb, _ := deps.Collaborators.Meetings.LookupClientMeetings(r.Context(), record.AdvisorID, record.ClientEmail, searchStart, searchEnd)
			nonClientBusy = ncb
			for _, m := range meetings {
				clientMeetings = append(clientMeetings, availability.ClientMeeting{
					Start: m.Start, End: m.End, Title: m.Title,
					AdvisorResponseStatus: availability.ClientMeetingState(m.AdvisorResponseStatus),
				})
			}
		}

		hostTimezone := deps.Env.FallbackTimezone
		if hostTimezone == "" {
			hostTimezone = "UTC"
		}

		grid := availability.Build(availability.BuildInput{
			BusyUTC:                  toIntervals(busyUTC),
			ClientMeetingsUTC:        clientMeetings,
			NonClientBusyUTC:         toIntervals(nonClientBusy),
			HostTimezone:             hostTimezone,
			AdvisingWeekdays:         deps.Env.AdvisingWeekdays,
			SearchStart:              searchStart,
			SearchEnd:                searchEnd,
			WorkdayStartMinutes:      deps.Env.WorkdayStartMinutes,
			WorkdayEndMinutes:        deps.Env.WorkdayEndMinutes,
			SlotMinutes:              deps.Env.SlotMinutes,
			RequestedDurationMinutes: record.DurationMinutes,
			MaxCells:                 deps.Env.MaxGridCells,
		})

		writeJSON(w, http.StatusOK, availabilityView{
			Record: record,
			Grid:   grid,
			Spans:  availability.MergeSpans(grid),
		})
	}
}

// resolveAvailabilityToken resolves either an opaque Store token or,
// when LegacyCodec is configured and the token has the dotted HMAC
// shape, a pre-existing signed legacy token.
func resolveAvailabilityToken(deps Deps, r *http.Request, token string) (linkstore.Record, error) {
	if strings.Contains(token, ".") && deps.LegacyCodec != nil {
		payload, err := deps.LegacyCodec.Verify(token)
		if err != nil {
			return linkstore.Record{}, linkstore.ErrTokenNotFound
		}
		return linkstore.Record{
			AdvisorID:       payload.AdvisorID,
			ClientTimezone:  payload.ClientTimezone,
			DurationMinutes: payload.DurationMinutes,
			CreatedAt:       time.UnixMilli(payload.IssuedAtMs),
			ExpiresAt:       time.UnixMilli(payload.ExpiresAtMs),
		}, nil
	}
	return deps.Links.Resolve(r.Context(), token)
}

func toIntervals(busy []collab.BusyInterval) []timeutil.Interval {
	out := make([]timeutil.Interval, len(busy))
	for i, b := range busy {
		out[i] = timeutil.Interval{Start: b.Start, End: b.End}
	}
	return out
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
