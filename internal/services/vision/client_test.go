package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cover.jpg")
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("test image body")...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test image: %v", err)
	}
	return path
}

func TestAnalyzeImageParsesStructuredResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ImageB64 == "" {
			t.Fatal("request missing image payload")
		}
		payload := map[string]any{
			"content": `{"artist":"Miles Davis","album":"Kind of Blue","label":"Columbia","year":"1959","catalog_number":"CL 1355","confidence":0.93}`,
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	analysis, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "")
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if analysis.Artist != "Miles Davis" || analysis.Album != "Kind of Blue" {
		t.Fatalf("unexpected identity: %q / %q", analysis.Artist, analysis.Album)
	}
	if analysis.Confidence != 0.93 {
		t.Fatalf("confidence = %v", analysis.Confidence)
	}
}

func TestAnalyzeImageToleratesCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"content": "```json\n{\"artist\":\"Nina Simone\",\"album\":\"Pastel Blues\",\"confidence\":0.8}\n```",
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	analysis, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "nina simone pastel")
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if analysis.Artist != "Nina Simone" {
		t.Fatalf("artist = %q", analysis.Artist)
	}
}

func TestAnalyzeImageClampsConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"content": `{"artist":"A","album":"B","confidence":1.7}`,
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	analysis, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "")
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if analysis.Confidence != 1 {
		t.Fatalf("confidence should clamp to 1, got %v", analysis.Confidence)
	}
}

func TestAnalyzeImageRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		payload := map[string]any{
			"content": `{"artist":"A","album":"B","confidence":0.9}`,
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	analysis, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "")
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if analysis.Artist != "A" {
		t.Fatalf("artist = %q", analysis.Artist)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestAnalyzeImageDoesNotRetryClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "bad", BaseURL: server.URL},
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	_, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "")
	if err == nil {
		t.Fatal("expected analyze to fail")
	}
	if calls != 1 {
		t.Fatalf("expected single call on 401, got %d", calls)
	}
}

func TestAnalyzeImageRetriesEmptyContent(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = `{"artist":"A","album":"B","confidence":0.6}`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": content})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	analysis, err := client.AnalyzeImage(context.Background(), writeTestImage(t), "")
	if err != nil {
		t.Fatalf("AnalyzeImage returned error: %v", err)
	}
	if analysis.Album != "B" {
		t.Fatalf("album = %q", analysis.Album)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestAnalyzeImageRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.AnalyzeImage(context.Background(), writeTestImage(t), ""); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}
