package intent

import (
	"regexp"
	"strings"

	"github.com/advisorflow/scheduling-agent/internal/timeutil"
)

var timezoneLabelRe = regexp.MustCompile(`(?i)timezone\s*[:=]\s*([A-Za-z_]+/[A-Za-z_]+)`)

// abbrevToIANA maps the closed set of US abbreviations the spec names
// to a representative IANA zone. DST-specific abbreviations (PDT, EDT,
// ...) map to the same zone as their standard-time sibling since Go's
// tzdata resolves the correct offset for the date in question.
var abbrevToIANA = map[string]string{
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"UTC": "UTC",
	"GMT": "UTC",
}

var abbrevTokenRe = regexp.MustCompile(`\b(PST|PDT|MST|MDT|CST|CDT|EST|EDT|UTC|GMT)\b`)

// extractClientTimezone implements step 1 of the §4.1 pipeline: a
// labelled "timezone: <IANA>" wins over a bare abbreviation token,
// which wins over null. Any candidate that fails to resolve as a real
// IANA zone is discarded in favor of the next layer.
func extractClientTimezone(text string) *string {
	if m := timezoneLabelRe.FindStringSubmatch(text); m != nil {
		if timeutil.ValidIANA(m[1]) {
			tz := m[1]
			return &tz
		}
	}

	if m := abbrevTokenRe.FindStringSubmatch(strings.ToUpper(text)); m != nil {
		if iana, ok := abbrevToIANA[m[1]]; ok {
			return &iana
		}
	}

	return nil
}

func workingTimezone(clientTz *string, fallback string) string {
	if clientTz != nil && *clientTz != "" {
		return *clientTz
	}
	if fallback != "" {
		return fallback
	}
	return defaultWorkingTimezone
}
