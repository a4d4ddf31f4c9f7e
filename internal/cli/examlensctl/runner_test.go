package examlensctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const vizBody = `{"type":"visualization","viz_type":"bar","x":"TrackName","y":"AvgScore","agg":"mean","data":[{"TrackName":"PowerBI","AvgScore":88.5},{"TrackName":"Go","AvgScore":null}],"explanation":"PowerBI leads.","columns":["TrackName","AvgScore"],"row_count":2}`

func TestRunAskPostsQuestion(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(vizBody))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "ask", "average", "score", "per", "track"}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d stderr=%s", code, stderr.String())
	}
	if gotMethod != http.MethodPost || gotPath != "/v1/chat" || gotContentType != "application/json" {
		t.Fatalf("request = %s %s (%s)", gotMethod, gotPath, gotContentType)
	}
	if gotBody["question"] != "average score per track" {
		t.Fatalf("question = %q", gotBody["question"])
	}
	out := stdout.String()
	if strings.Index(out, `"type"`) > strings.Index(out, `"viz_type"`) {
		t.Fatalf("output reordered keys:\n%s", out)
	}
}

func TestRunAskCompatUsesQueryParameter(t *testing.T) {
	var gotPrompt, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPrompt = r.URL.Query().Get("user_prompt")
		_, _ = w.Write([]byte(`{"type":"query_response","explanation":"ok","data":[],"columns":["a"],"row_count":0}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "-compat", "ask", "طلاب الدفعة 45"}, Options{Stderr: &stderr})
	if code != 0 {
		t.Fatalf("exit code = %d stderr=%s", code, stderr.String())
	}
	if gotPath != "/chat" || gotPrompt != "طلاب الدفعة 45" {
		t.Fatalf("path/prompt = %q/%q", gotPath, gotPrompt)
	}
}

func TestRunAskRendersTableAndExportsParquet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(vizBody))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "result.parquet")
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "-table", "-parquet", path, "ask", "q"}, Options{Stdout: &stdout, Stderr: &stderr})
	if code != 0 {
		t.Fatalf("exit code = %d stderr=%s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"PowerBI", "88.5", "NULL", "2 row(s)", "chart: bar x=TrackName y=AvgScore agg=mean"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PAR1")) {
		t.Fatal("parquet file missing magic")
	}
}

func TestRunAskErrorEnvelopeExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"type":"error","error":"only SELECT statements are allowed"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"-base-url", srv.URL, "ask", "drop", "everything"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "only SELECT statements are allowed") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestRunGetCommands(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v1/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error_code":"NOT_READY"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	if code := Run(context.Background(), []string{"-base-url", srv.URL, "health"}, Options{}); code != 0 {
		t.Fatalf("health exit code = %d", code)
	}
	if code := Run(context.Background(), []string{"-base-url", srv.URL, "schema"}, Options{}); code != 0 {
		t.Fatalf("schema exit code = %d", code)
	}
	var stderr bytes.Buffer
	if code := Run(context.Background(), []string{"-base-url", srv.URL, "ready"}, Options{Stderr: &stderr}); code != 1 {
		t.Fatalf("ready exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "http 503") {
		t.Fatalf("stderr = %q", stderr.String())
	}
	if strings.Join(paths, ",") != "/v1/health,/v1/schema,/v1/ready" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestRunUsageErrors(t *testing.T) {
	var stderr bytes.Buffer
	if code := Run(context.Background(), nil, Options{Stderr: &stderr}); code != 2 {
		t.Fatalf("no command exit code = %d", code)
	}
	if code := Run(context.Background(), []string{"nope"}, Options{Stderr: &stderr}); code != 2 {
		t.Fatalf("unknown command exit code = %d", code)
	}
	if code := Run(context.Background(), []string{"ask"}, Options{Stderr: &stderr}); code != 2 {
		t.Fatalf("ask without question exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "usage: examlensctl") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
