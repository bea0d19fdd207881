package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output %q does not mention %s", output, target)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite failed: %v", err)
	}
}

func TestStatusCommandRendersHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"store":  map[string]int{"Uploaded": 2, "Archived": 5},
			"stages": []map[string]any{
				{"name": "analyze", "ready": true},
				{"name": "archive", "ready": true},
			},
		})
	}))
	defer server.Close()

	output, err := runCommand(t, "status", "--server", server.URL)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"uploaded", "archived", "analyze", "OK"} {
		if !strings.Contains(output, want) {
			t.Fatalf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestUploadCommandSendsMultipart(t *testing.T) {
	var gotOwner string
	var gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner = r.Header.Get("X-Owner-ID")
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		part, err := mr.NextPart()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFilename = part.FileName()
		_, _ = io.Copy(io.Discard, part)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"preview_id": "p-1", "status": "uploaded",
			"detected_mime": "image/jpeg", "size": 4,
		})
	}))
	defer server.Close()

	image := filepath.Join(t.TempDir(), "sleeve.jpg")
	if err := os.WriteFile(image, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	output, err := runCommand(t, "upload", image, "--server", server.URL, "--owner", "collector-9")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if gotOwner != "collector-9" {
		t.Fatalf("owner header = %q", gotOwner)
	}
	if gotFilename != "sleeve.jpg" {
		t.Fatalf("filename = %q", gotFilename)
	}
	if !strings.Contains(output, "p-1") {
		t.Fatalf("output missing preview id:\n%s", output)
	}
}

func TestUploadCommandReportsRejectionReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "executable signature", "reason": "dangerous_signature",
		})
	}))
	defer server.Close()

	image := filepath.Join(t.TempDir(), "sleeve.jpg")
	if err := os.WriteFile(image, []byte("MZ"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	_, err := runCommand(t, "upload", image, "--server", server.URL)
	if err == nil {
		t.Fatal("expected an error for a rejected upload")
	}
	if !strings.Contains(err.Error(), "dangerous_signature") {
		t.Fatalf("error %q missing rejection reason", err)
	}
}

func TestRecordsListRendersTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{
				"record_id": "r-1",
				"fields": map[string]string{
					"artist": "MILES DAVIS", "album": "KIND OF BLUE",
					"label": "Columbia", "year": "1959",
				},
				"enrichment_source": "catalog",
				"archived_at":       "2026-08-30T12:00:00Z",
			}},
		})
	}))
	defer server.Close()

	output, err := runCommand(t, "records", "list", "--server", server.URL)
	if err != nil {
		t.Fatalf("records list failed: %v", err)
	}
	// All-caps sleeve text is tidied for display.
	for _, want := range []string{"r-1", "Miles Davis", "Kind Of Blue", "1959"} {
		if !strings.Contains(output, want) {
			t.Fatalf("output missing %q:\n%s", want, output)
		}
	}
}

func TestDisplayField(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"MILES DAVIS", "Miles Davis"},
		{"Miles Davis", "Miles Davis"},
		{"  Blue Note  ", "Blue Note"},
		{"", "-"},
		{"   ", "-"},
	}
	for _, tc := range cases {
		if got := displayField(tc.in); got != tc.want {
			t.Errorf("displayField(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
