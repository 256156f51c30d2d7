package signer

import (
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	return func() time.Time { return at }
}

func TestSign_DeterministicForFixedClock(t *testing.T) {
	s := New("AKIDEXAMPLE", "secret-key", "ap-southeast-1").WithClock(fixedClock())

	first, err := s.Sign("POST", "https://pangu.example.com/v1/infers/fraud-detection-v1", `{"inputs":[]}`, "pangu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Sign("POST", "https://pangu.example.com/v1/infers/fraud-detection-v1", `{"inputs":[]}`, "pangu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Headers["Authorization"] != second.Headers["Authorization"] {
		t.Errorf("expected identical signatures for identical inputs at the same instant:\n%s\n%s",
			first.Headers["Authorization"], second.Headers["Authorization"])
	}
	if first.Headers["X-Sdk-Date"] != "20250314T092653Z" {
		t.Errorf("unexpected timestamp header: %s", first.Headers["X-Sdk-Date"])
	}
}

func TestSign_DifferentSecretChangesSignature(t *testing.T) {
	a := New("AKIDEXAMPLE", "secret-key-a", "ap-southeast-1").WithClock(fixedClock())
	b := New("AKIDEXAMPLE", "secret-key-b", "ap-southeast-1").WithClock(fixedClock())

	reqA, err := a.Sign("POST", "https://pangu.example.com/v1/infers/m1", "{}", "pangu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqB, err := b.Sign("POST", "https://pangu.example.com/v1/infers/m1", "{}", "pangu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reqA.Headers["Authorization"] == reqB.Headers["Authorization"] {
		t.Error("expected different secrets to produce different signatures")
	}
}

func TestSign_HeaderShape(t *testing.T) {
	s := New("AKIDEXAMPLE", "secret-key", "ap-southeast-1").WithClock(fixedClock())

	req, err := s.Sign("GET", "https://modelarts.example.com/v1/models?limit=10", "", "modelarts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Headers["Host"] != "modelarts.example.com" {
		t.Errorf("unexpected host header: %s", req.Headers["Host"])
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Errorf("unexpected content type: %s", req.Headers["Content-Type"])
	}
	auth := req.Headers["Authorization"]
	if !strings.HasPrefix(auth, "SDK-HMAC-SHA256 Access=AKIDEXAMPLE, SignedHeaders=host;x-sdk-date, Signature=") {
		t.Errorf("unexpected authorization header shape: %s", auth)
	}
	if req.URL != "https://modelarts.example.com/v1/models?limit=10" {
		t.Errorf("signer must return the original url, got %s", req.URL)
	}
}

func TestSign_QueryAndBodyAffectSignature(t *testing.T) {
	s := New("AKIDEXAMPLE", "secret-key", "ap-southeast-1").WithClock(fixedClock())

	base, _ := s.Sign("POST", "https://api.example.com/v1/jobs", `{"a":1}`, "modelarts")
	diffBody, _ := s.Sign("POST", "https://api.example.com/v1/jobs", `{"a":2}`, "modelarts")
	diffQuery, _ := s.Sign("POST", "https://api.example.com/v1/jobs?dry_run=true", `{"a":1}`, "modelarts")

	if base.Headers["Authorization"] == diffBody.Headers["Authorization"] {
		t.Error("body change must change the signature")
	}
	if base.Headers["Authorization"] == diffQuery.Headers["Authorization"] {
		t.Error("query change must change the signature")
	}
}

func TestSign_InvalidURL(t *testing.T) {
	s := New("AKIDEXAMPLE", "secret-key", "ap-southeast-1")

	if _, err := s.Sign("POST", "://not-a-url", "{}", "pangu"); err == nil {
		t.Error("expected error for malformed url")
	}
	if _, err := s.Sign("POST", "relative/path", "{}", "pangu"); err == nil {
		t.Error("expected error for url without host")
	}
}
