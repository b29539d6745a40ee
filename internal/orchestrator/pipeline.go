package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/advisorflow/scheduling-agent/internal/collab"
	"github.com/advisorflow/scheduling-agent/internal/intent"
	"github.com/advisorflow/scheduling-agent/internal/linkstore"
	"github.com/advisorflow/scheduling-agent/internal/slots"
	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

// Process runs the full inbound-email pipeline. nowFn is injected so
// tests can pin "now" the same way the intent extractor's reference
// time is pinned; production callers pass time.Now.
func Process(ctx context.Context, payload EmailPayload, env Env, collabs Collaborators, nowFn func() time.Time) Result {
	requestID := uuid.New().String()
	responseID := uuid.New().String()
	now := nowFn()

	var steps []StepOutcome
	record := func(name string, err error) {
		o := StepOutcome{Name: name, OK: err == nil}
		if err != nil {
			o.Error = err.Error()
		}
		steps = append(steps, o)
	}

	persistTrace := func(status string, extra func(*TraceData)) {
		if collabs.Traces == nil {
			return
		}
		steps = append(steps, StepOutcome{Name: "persist_trace", OK: true})
		trace := TraceData{
			RequestID:  requestID,
			ResponseID: responseID,
			AdvisorID:  payload.HostID,
			Status:     status,
			Steps:      steps,
		}
		if extra != nil {
			extra(&trace)
		}
		if traceBytes, err := json.Marshal(trace); err == nil {
			_ = collabs.Traces.Put(ctx, requestID, traceBytes)
		}
	}

	// Step 1: normalise fromEmail; reject if it can't be resolved.
	clientEmail, ok := normalizeFromEmail(payload.From)
	if !ok {
		record("normalize_from_email", fmt.Errorf("missing or invalid fromEmail"))
		persistTrace("failed", func(t *TraceData) { t.Stage = "validation"; t.ErrorCode = "INVALID_FROM_EMAIL" })
		return Result{StatusCode: 400, RequestID: requestID, ResponseID: responseID, Error: "missing or invalid fromEmail", Steps: steps}
	}
	record("normalize_from_email", nil)

	if collabs.RawEmails != nil && len(payload.Raw) > 0 {
		err := collabs.RawEmails.Put(ctx, rawEmailKey(payload.MessageID), payload.Raw)
		record("archive_raw_email", err)
	}

	idempotencyKey := "idempotency:" + payload.MessageID
	if collabs.KV != nil && payload.MessageID != "" {
		created, err := collabs.KV.PutIfAbsent(ctx, idempotencyKey, []byte(requestID), env.IdempotencyTTL)
		record("idempotency_claim", err)
		if err == nil && !created {
			return Result{
				StatusCode:     200,
				RequestID:      requestID,
				ResponseID:     responseID,
				AlreadyHandled: true,
				Steps:          steps,
			}
		}
	}

	// Step 2: resolve body text, inline or best-effort fetched.
	body, bodySource := resolveBody(ctx, payload, collabs.RawEmails)
	record("resolve_body:"+bodySource, nil)

	// Step 3: access-state denial.
	var clientProfile *collab.ClientProfile
	if collabs.Clients != nil {
		profile, err := collabs.Clients.GetByAdvisorAndEmail(ctx, payload.HostID, clientEmail)
		record("load_client_profile", err)
		if err == nil {
			clientProfile = profile
		}
	}
	if clientProfile != nil && (clientProfile.AccessState == "blocked" || clientProfile.AccessState == "deleted") {
		denialBody := "Thanks for reaching out. We're unable to schedule a meeting for this address right now."
		deliveryStatus := "logged"
		if env.ResponseMode == "send" && env.SenderEmail != "" && collabs.Mailer != nil {
			err := collabs.Mailer.Send(ctx, clientEmail, "Re: "+payload.Subject, denialBody)
			record("send_denial", err)
			if err == nil {
				deliveryStatus = "sent"
			}
		}
		persistTrace("denied", func(t *TraceData) {})
		return Result{
			StatusCode:     200,
			RequestID:      requestID,
			ResponseID:     responseID,
			AccessDenied:   true,
			AccessState:    clientProfile.AccessState,
			DeliveryStatus: deliveryStatus,
			Steps:          steps,
		}
	}

	// Step 4: effective advising-weekday precedence (client > policy >
	// advisor default > deployment fallback).
	var advisorProfile *collab.AdvisorProfile
	if collabs.Advisors != nil {
		a, err := collabs.Advisors.GetByID(ctx, payload.HostID)
		record("load_advisor_profile", err)
		if err == nil {
			advisorProfile = a
		}
	}
	var policyProfile *collab.PolicyProfile
	if clientProfile != nil && clientProfile.PolicyID != "" && collabs.Policies != nil {
		p, err := collabs.Policies.GetByID(ctx, clientProfile.PolicyID)
		record("load_policy", err)
		if err == nil {
			policyProfile = p
		}
	}
	advisingWeekdays := effectiveAdvisingWeekdays(clientProfile, policyProfile, advisorProfile, env.AdvisingWeekdays)

	advisorDisplayName := env.SenderName
	advisorTimezone := env.FallbackTimezone
	if advisorProfile != nil {
		if advisorProfile.DisplayName != "" {
			advisorDisplayName = advisorProfile.DisplayName
		}
		if advisorProfile.Timezone != "" {
			advisorTimezone = advisorProfile.Timezone
		}
	}

	// Step 5: C2 extraction, optionally hybrid-merged with an LLM parse.
	rec := intent.Extract(payload.Subject, body, clientEmail, timeutil.FormatISO(now), advisorTimezone, env.DefaultDurationMinutes)
	intentSource := "parser"
	if env.IntentExtractionMode == "llm_hybrid" && collabs.IntentLlm != nil {
		threshold := env.IntentConfidenceThreshold
		if threshold <= 0 {
			threshold = defaultIntentConfidenceThreshold
		}
		llmResult, err := collabs.IntentLlm.ExtractIntent(ctx, collab.IntentExtractionRequest{
			Subject:          payload.Subject,
			Body:             body,
			ReferenceNowISO:  timeutil.FormatISO(now),
			FallbackTimezone: advisorTimezone,
		})
		record("extract_intent_llm", err)
		if err == nil {
			rec, intentSource = mergeIntentWithLLM(rec, llmResult, threshold)
		}
	}
	record("extract_intent", nil)

	// Step 6: duration-over-limit is a validation error, not a clamp.
	if env.MaxDurationMinutes > 0 && rec.DurationMinutes > env.MaxDurationMinutes {
		record("validate_duration", fmt.Errorf("durationMinutes %d exceeds MaxDurationMinutes %d", rec.DurationMinutes, env.MaxDurationMinutes))
		persistTrace("failed", func(t *TraceData) { t.Stage = "validation"; t.ErrorCode = "DURATION_OVER_LIMIT"; t.IntentSource = intentSource })
		return Result{
			StatusCode: 400,
			RequestID:  requestID,
			ResponseID: responseID,
			Error:      "durationMinutes exceeds the configured limit",
			Steps:      steps,
		}
	}
	record("validate_duration", nil)

	// Step 7: busy-interval lookup; a failure here is fatal.
	searchStart := now
	searchEnd := now.AddDate(0, 0, env.SearchDays)

	var busy []timeutil.Interval
	if collabs.Calendar != nil {
		busyIntervals, err := collabs.Calendar.GetBusyTimes(ctx, payload.HostID, searchStart, searchEnd)
		record("fetch_busy_times", err)
		if err != nil {
			persistTrace("failed", func(t *TraceData) {
				t.Stage = "calendar_lookup"
				t.ErrorCode = "CALENDAR_LOOKUP_FAILED"
				t.IntentSource = intentSource
			})
			return Result{
				StatusCode: 500,
				RequestID:  requestID,
				ResponseID: responseID,
				Error:      "calendar lookup failed",
				Steps:      steps,
			}
		}
		for _, b := range busyIntervals {
			busy = append(busy, timeutil.Interval{Start: b.Start, End: b.End})
		}
	}

	requestedWindows := parseRequestedWindows(rec.RequestedWindows)

	// Step 8: C3 slot generation.
	generated := slots.Generate(slots.Input{
		BusyUTC:             busy,
		RequestedWindowsUTC: requestedWindows,
		HostTimezone:        advisorTimezone,
		AdvisingWeekdays:    advisingWeekdays,
		SearchStart:         searchStart,
		SearchEnd:           searchEnd,
		WorkdayStartMinutes: env.WorkdayStartMinutes,
		WorkdayEndMinutes:   env.WorkdayEndMinutes,
		DurationMinutes:     rec.DurationMinutes,
		MaxSuggestions:      env.MaxSuggestions,
	})
	record("generate_slots", nil)

	clientTimezone := advisorTimezone
	if rec.ClientTimezone != nil {
		clientTimezone = *rec.ClientTimezone
	}

	// Step 9: draft a reply, template first, LLM preferred on success.
	draftBody := templatedDraft(rec, generated, env.BaseURL, "")
	llmStatus := ""
	if collabs.Llm != nil {
		drafted, err := collabs.Llm.DraftReply(ctx, draftRequestFrom(rec, generated, advisorTimezone))
		record("draft_reply", err)
		if err == nil && drafted != "" {
			draftBody = drafted
		} else {
			llmStatus = "fallback"
		}
	}

	// Step 10: allocate a link if slots exist, TTL clamped to the spec
	// bounds regardless of configuration.
	var linkToken string
	if len(generated) > 0 {
		clientDisplay := ""
		if clientProfile != nil {
			clientDisplay = clientProfile.DisplayName
		}
		token, err := collabs.Links.Allocate(ctx, linkstore.AllocateInput{
			LinkID:            requestID,
			AdvisorID:         payload.HostID,
			ClientEmail:       clientEmail,
			ClientDisplayName: clientDisplay,
			ClientTimezone:    clientTimezone,
			DurationMinutes:   rec.DurationMinutes,
			TTL:               clampLinkTTL(env.LinkTTL),
		})
		record("allocate_link", err)
		if err == nil {
			linkToken = token
			draftBody = templatedDraft(rec, generated, env.BaseURL, linkToken)
			if llmStatus == "" && collabs.Llm != nil {
				// the LLM-drafted body doesn't know the link yet; append it.
				draftBody = appendLinkBlock(draftBody, env.BaseURL, linkToken)
			}
		}
	}

	// Step 11: greeting / sign-off injection.
	clientDisplay := clientDisplayName(clientProfile, clientEmail)
	draftBody = injectGreetingAndSignOff(draftBody, clientDisplay, advisorDisplayName)

	// Step 12: dispatch, gated on RESPONSE_MODE=send.
	deliveryStatus := "logged"
	if env.ResponseMode == "send" {
		if env.SenderEmail == "" {
			record("send_reply", fmt.Errorf("SENDER_EMAIL is required when RESPONSE_MODE=send"))
			persistTrace("failed", func(t *TraceData) { t.Stage = "validation"; t.ErrorCode = "MISSING_SENDER_EMAIL"; t.IntentSource = intentSource })
			return Result{
				StatusCode: 400,
				RequestID:  requestID,
				ResponseID: responseID,
				Error:      "SENDER_EMAIL is required when RESPONSE_MODE=send",
				Steps:      steps,
			}
		}
		if collabs.Mailer != nil {
			subject := "Re: " + payload.Subject
			err := collabs.Mailer.Send(ctx, clientEmail, subject, draftBody)
			record("send_reply", err)
			if err == nil {
				deliveryStatus = "sent"
			}
		}
	}

	// Step 13: metadata-only trace.
	persistTrace("ok", func(t *TraceData) {
		t.IntentSource = intentSource
		t.LlmStatus = llmStatus
		t.SuggestionCount = len(generated)
		t.LinkTTLSeconds = int(clampLinkTTL(env.LinkTTL).Seconds())
	})

	// Step 14: best-effort interaction counter.
	if clientProfile != nil && collabs.Clients != nil {
		_ = collabs.Clients.IncrementInteractionCount(ctx, clientProfile.ID)
	}

	return Result{
		StatusCode:     200,
		RequestID:      requestID,
		ResponseID:     responseID,
		DeliveryStatus: deliveryStatus,
		LlmStatus:      llmStatus,
		IntentSource:   intentSource,
		Intent:         rec,
		Slots:          generated,
		LinkToken:      linkToken,
		DraftBody:      draftBody,
		Steps:          steps,
	}
}

// ProcessFeedback validates and conditionally attaches client/advisor
// feedback to the trace that (requestId, responseId) both match.
func ProcessFeedback(ctx context.Context, payload FeedbackPayload, env Env, collabs Collaborators) FeedbackResult {
	if payload.RequestID == "" || payload.ResponseID == "" ||
		!validFeedbackTypes[payload.FeedbackType] ||
		!validFeedbackReasons[payload.FeedbackReason] ||
		!validFeedbackSources[payload.FeedbackSource] {
		return FeedbackResult{StatusCode: 400, Error: "invalid feedback payload"}
	}
	if collabs.Traces == nil {
		return FeedbackResult{StatusCode: 404, Error: "trace not found"}
	}

	raw, found, err := collabs.Traces.Get(ctx, payload.RequestID)
	if err != nil || !found {
		return FeedbackResult{StatusCode: 404, Error: "trace not found"}
	}

	var trace TraceData
	if err := json.Unmarshal(raw, &trace); err != nil || trace.ResponseID != payload.ResponseID {
		return FeedbackResult{StatusCode: 404, Error: "trace not found"}
	}

	trace.Feedback = &FeedbackRecord{
		Type:   payload.FeedbackType,
		Reason: payload.FeedbackReason,
		Source: payload.FeedbackSource,
	}
	trace.FeedbackCount++
	if updated, err := json.Marshal(trace); err == nil {
		_ = collabs.Traces.Put(ctx, payload.RequestID, updated)
	}
	return FeedbackResult{StatusCode: 200}
}

var emailAddrRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// normalizeFromEmail extracts a bare lowercased local@domain address
// out of an RFC-5322-ish From header, accepting both "Name <addr>" and
// bare-address forms.
func normalizeFromEmail(raw string) (string, bool) {
	m := emailAddrRe.FindString(raw)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}

// resolveBody implements step 2's body resolution ladder: the inline
// body wins; otherwise an inline raw MIME payload is parsed directly;
// otherwise a previously archived raw email is fetched by message id
// and best-effort deleted after reading. Any failure falls through to
// an empty body rather than failing the request.
func resolveBody(ctx context.Context, payload EmailPayload, rawEmails collab.RawEmailObjectStore) (string, string) {
	if payload.Body != "" {
		return payload.Body, "inline"
	}
	if len(payload.Raw) > 0 {
		return extractPlainTextBody(payload.Raw), "raw_inline"
	}
	if rawEmails == nil || payload.MessageID == "" {
		return "", "unavailable"
	}
	key := rawEmailKey(payload.MessageID)
	raw, err := rawEmails.Get(ctx, key)
	if err != nil {
		return "", "fetch_failed"
	}
	_ = rawEmails.Delete(ctx, key)
	return extractPlainTextBody(raw), "fetched"
}

// extractPlainTextBody pulls the text/plain part out of a raw MIME
// message, falling back to the whole body for single-part messages and
// to the raw bytes verbatim if the message can't be parsed as mail at
// all. Best-effort, matching C7's "never fail the request" policy.
func extractPlainTextBody(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil {
		body, _ := io.ReadAll(msg.Body)
		return string(body)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		body, _ := io.ReadAll(msg.Body)
		return string(body)
	}
	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		if strings.HasPrefix(part.Header.Get("Content-Type"), "text/plain") {
			data, _ := io.ReadAll(part)
			return string(data)
		}
	}
	return ""
}

// effectiveAdvisingWeekdays resolves step 4's precedence chain:
// per-client override, then policy preset, then advisor default, then
// the deployment fallback.
func effectiveAdvisingWeekdays(client *collab.ClientProfile, policy *collab.PolicyProfile, advisor *collab.AdvisorProfile, fallback map[time.Weekday]bool) map[time.Weekday]bool {
	if client != nil && len(client.AdvisingWeekdays) > 0 {
		return weekdaySet(client.AdvisingWeekdays)
	}
	if policy != nil && len(policy.AdvisingWeekdays) > 0 {
		return weekdaySet(policy.AdvisingWeekdays)
	}
	if advisor != nil && len(advisor.AdvisingWeekdays) > 0 {
		return weekdaySet(advisor.AdvisingWeekdays)
	}
	return fallback
}

func weekdaySet(days []time.Weekday) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

// mergeIntentWithLLM implements step 5's hybrid merge: the LLM result
// wins outright only if it found at least one window and either the
// parser found none or the LLM's confidence clears threshold.
func mergeIntentWithLLM(parserRec intent.Record, llmResult collab.IntentExtractionResult, threshold float64) (intent.Record, string) {
	llmHasWindows := len(llmResult.RequestedWindows) > 0
	parserHasWindows := len(parserRec.RequestedWindows) > 0
	llmWins := llmHasWindows && (!parserHasWindows || llmResult.Confidence >= threshold)

	if !llmWins {
		return parserRec, "parser"
	}

	rec := parserRec
	windows := make([]intent.Window, 0, len(llmResult.RequestedWindows))
	for _, w := range llmResult.RequestedWindows {
		windows = append(windows, intent.Window{StartISO: w.StartISO, EndISO: w.EndISO})
	}
	rec.RequestedWindows = windows
	if llmResult.DurationMinutes > 0 {
		rec.DurationMinutes = llmResult.DurationMinutes
	}
	if llmResult.MeetingType != "" {
		rec.MeetingType = intent.MeetingType(llmResult.MeetingType)
	}
	if rec.ClientTimezone == nil && llmResult.ClientTimezone != "" {
		tz := llmResult.ClientTimezone
		rec.ClientTimezone = &tz
	}

	source := "llm"
	if parserHasWindows {
		source = "llm_override"
	}
	return rec, source
}

func clientDisplayName(profile *collab.ClientProfile, clientEmail string) string {
	if profile != nil && profile.DisplayName != "" {
		return profile.DisplayName
	}
	local, _, _ := strings.Cut(clientEmail, "@")
	return local
}

var topGreetingLineRe = regexp.MustCompile(`(?i)^\s*(hi|hello)\b`)
var signOffBlockRe = regexp.MustCompile(`(?im)^[ \t]*(Best regards|Best|Regards)[,!]?[ \t]*$\n?.*$`)

// injectGreetingAndSignOff applies step 11: a top greeting line is
// replaced if present, else prepended; an existing sign-off block (the
// closing line plus its following name line) is replaced if present,
// else the sign-off is appended.
func injectGreetingAndSignOff(body, clientDisplay, advisorDisplay string) string {
	greetingLine := fmt.Sprintf("Hi %s,", clientDisplay)

	lines := strings.SplitN(body, "\n", 2)
	if len(lines) > 0 && topGreetingLineRe.MatchString(lines[0]) {
		rest := ""
		if len(lines) > 1 {
			rest = lines[1]
		}
		body = greetingLine + "\n" + rest
	} else {
		body = greetingLine + "\n\n" + body
	}

	signOff := "Best regards,\n" + advisorDisplay
	if loc := signOffBlockRe.FindStringIndex(body); loc != nil {
		body = body[:loc[0]] + signOff + body[loc[1]:]
	} else {
		body = strings.TrimRight(body, "\n") + "\n\n" + signOff
	}
	return body
}

func appendLinkBlock(body, baseURL, linkToken string) string {
	if linkToken == "" || baseURL == "" {
		return body
	}
	return strings.TrimRight(body, "\n") + fmt.Sprintf("\n\nPick a time here: %s/availability/%s\n", baseURL, linkToken)
}

func rawEmailKey(messageID string) string {
	if messageID == "" {
		return "raw/" + uuid.New().String()
	}
	return "raw/" + messageID
}

func parseRequestedWindows(windows []intent.Window) []timeutil.Interval {
	var out []timeutil.Interval
	for _, w := range windows {
		start, err := timeutil.ParseISO(w.StartISO)
		if err != nil {
			continue
		}
		end, err := timeutil.ParseISO(w.EndISO)
		if err != nil {
			continue
		}
		out = append(out, timeutil.Interval{Start: start, End: end})
	}
	return out
}

func draftRequestFrom(rec intent.Record, generated []slots.Slot, fallbackTz string) collab.DraftRequest {
	tz := fallbackTz
	if rec.ClientTimezone != nil {
		tz = *rec.ClientTimezone
	}
	loc := timeutil.LoadLocationOrUTC(tz)

	slotsLocal := make([]string, 0, len(generated))
	for _, s := range generated {
		slotsLocal = append(slotsLocal, s.Start.In(loc).Format("Mon Jan 2 3:04 PM")+" - "+s.End.In(loc).Format("3:04 PM MST"))
	}

	return collab.DraftRequest{
		ClientName:      rec.ClientEmail,
		MeetingType:     string(rec.MeetingType),
		DurationMinutes: rec.DurationMinutes,
		SlotsLocal:      slotsLocal,
		ClientTimezone:  tz,
	}
}

func templatedDraft(rec intent.Record, generated []slots.Slot, baseURL, linkToken string) string {
	if len(generated) == 0 {
		return "Thanks for reaching out. None of the requested times are available right now; could you share a few alternatives?"
	}

	tz := "UTC"
	if rec.ClientTimezone != nil {
		tz = *rec.ClientTimezone
	}
	loc := timeutil.LoadLocationOrUTC(tz)

	body := "Thanks for reaching out. Here are some times that work:\n\n"
	for _, s := range generated {
		body += fmt.Sprintf("- %s to %s\n", s.Start.In(loc).Format("Mon Jan 2 3:04 PM"), s.End.In(loc).Format("3:04 PM MST"))
	}
	return appendLinkBlock(body, baseURL, linkToken)
}
