package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestNormalizeURLKeepsPortAndDropsCredentials(t *testing.T) {
	normalized, domain, err := NormalizeURL("http://user:pw@Dashboard.Local:8090/v1#top")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "dashboard.local" || normalized != "http://dashboard.local:8090/v1" {
		t.Fatalf("unexpected result %s %s", normalized, domain)
	}
}

func TestExtractURLsTrimsPunctuation(t *testing.T) {
	got := ExtractURLs("screenshot: https://i.imgur.com/a.png. also (https://x.com/b)")
	if len(got) != 2 || got[0] != "https://i.imgur.com/a.png" || got[1] != "https://x.com/b" {
		t.Fatalf("unexpected urls %q", got)
	}
}
