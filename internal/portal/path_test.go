package portal

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/":                    "/",
		"/advisor//jane/":      "/advisor/jane",
		"advisor/jane":         "/advisor/jane",
		"/advisor/jane":        "/advisor/jane",
		"//availability//tok//": "/availability/tok",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
