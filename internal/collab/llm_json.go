package collab

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// HTTPLlmClient drafts scheduling reply copy by POSTing a JSON payload
// to an HTTP collaborator endpoint and decoding its JSON response.
// goccy/go-json stands in for encoding/json on both sides of the wire,
// matching how the LLM collaborator in this stack is wired elsewhere.
type HTTPLlmClient struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

type draftReplyRequest struct {
	ClientName      string   `json:"client_name"`
	MeetingType     string   `json:"meeting_type"`
	DurationMinutes int      `json:"duration_minutes"`
	SlotsLocal      []string `json:"slots_local"`
	ClientTimezone  string   `json:"client_timezone"`
}

type draftReplyResponse struct {
	Body string `json:"body"`
}

func (c HTTPLlmClient) DraftReply(ctx context.Context, req DraftRequest) (string, error) {
	payload, err := json.Marshal(draftReplyRequest{
		ClientName:      req.ClientName,
		MeetingType:     req.MeetingType,
		DurationMinutes: req.DurationMinutes,
		SlotsLocal:      req.SlotsLocal,
		ClientTimezone:  req.ClientTimezone,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("collab: llm collaborator returned status %d", resp.StatusCode)
	}

	var decoded draftReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Body, nil
}

type extractIntentRequest struct {
	Subject          string `json:"subject"`
	Body             string `json:"body"`
	ReferenceNowISO  string `json:"reference_now_iso"`
	FallbackTimezone string `json:"fallback_timezone"`
}

type extractIntentResponse struct {
	ClientTimezone   string           `json:"client_timezone"`
	DurationMinutes  int              `json:"duration_minutes"`
	MeetingType      string           `json:"meeting_type"`
	RequestedWindows []IntentWindow   `json:"requested_windows"`
	Confidence       float64          `json:"confidence"`
}

// ExtractIntent asks the same LLM collaborator endpoint family to
// parse subject+body into a structured intent, for the orchestrator's
// llm_hybrid merge path. A non-4000ms-bounded context is the caller's
// responsibility, per the intent path's own 10000ms budget.
func (c HTTPLlmClient) ExtractIntent(ctx context.Context, req IntentExtractionRequest) (IntentExtractionResult, error) {
	payload, err := json.Marshal(extractIntentRequest{
		Subject:          req.Subject,
		Body:             req.Body,
		ReferenceNowISO:  req.ReferenceNowISO,
		FallbackTimezone: req.FallbackTimezone,
	})
	if err != nil {
		return IntentExtractionResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/intent", bytes.NewReader(payload))
	if err != nil {
		return IntentExtractionResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return IntentExtractionResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return IntentExtractionResult{}, fmt.Errorf("collab: llm intent collaborator returned status %d", resp.StatusCode)
	}

	var decoded extractIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return IntentExtractionResult{}, err
	}
	return IntentExtractionResult{
		ClientTimezone:   decoded.ClientTimezone,
		DurationMinutes:  decoded.DurationMinutes,
		MeetingType:      decoded.MeetingType,
		RequestedWindows: decoded.RequestedWindows,
		Confidence:       decoded.Confidence,
	}, nil
}
