// Package examlensctl is the command-line client for the examlens API.
package examlensctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("examlensctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "examlens API base URL")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")
	table := fs.Bool("table", false, "render ask results as a table instead of JSON")
	parquetPath := fs.String("parquet", "", "write the rows returned by ask to this Parquet file")
	compat := fs.Bool("compat", false, "use the legacy POST /chat?user_prompt= route")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}
	base := strings.TrimRight(*baseURL, "/")

	command := strings.TrimSpace(fs.Arg(0))
	switch command {
	case "health", "ready", "schema":
		return runGet(ctx, client, base+"/v1/"+command, stdout, stderr)
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, "ask requires a question")
			return 2
		}
		return runAsk(ctx, client, base, question, askOptions{table: *table, parquetPath: *parquetPath, compat: *compat}, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

func runGet(ctx context.Context, client *http.Client, endpoint string, stdout, stderr io.Writer) int {
	code, body, err := doRequest(ctx, client, http.MethodGet, endpoint, nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	writeBody(stdout, body)
	return 0
}

type askOptions struct {
	table       bool
	parquetPath string
	compat      bool
}

func runAsk(ctx context.Context, client *http.Client, base, question string, opts askOptions, stdout, stderr io.Writer) int {
	var (
		code int
		body []byte
		err  error
	)
	if opts.compat {
		code, body, err = doRequest(ctx, client, http.MethodPost, base+"/chat?user_prompt="+url.QueryEscape(question), nil)
	} else {
		payload, marshalErr := json.Marshal(map[string]string{"question": question})
		if marshalErr != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", marshalErr)
			return 1
		}
		code, body, err = doRequest(ctx, client, http.MethodPost, base+"/v1/chat", payload)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	envelope, err := decodeEnvelope(body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "http %d: unexpected response: %s\n", code, strings.TrimSpace(string(body)))
		return 1
	}
	if envelope.Type == "error" {
		_, _ = fmt.Fprintf(stderr, "error: %s\n", envelope.Error)
		return 1
	}

	if opts.parquetPath != "" {
		if err := writeParquetFile(opts.parquetPath, envelope); err != nil {
			_, _ = fmt.Fprintf(stderr, "parquet export failed: %v\n", err)
			return 1
		}
	}
	if opts.table {
		rendered, err := renderEnvelope(envelope)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "render failed: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintln(stdout, rendered)
	} else {
		writeBody(stdout, body)
	}
	if opts.parquetPath != "" {
		_, _ = fmt.Fprintf(stderr, "wrote %d rows to %s\n", envelope.RowCount, opts.parquetPath)
	}
	return 0
}

func writeParquetFile(path string, envelope chatEnvelope) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := envelope.writeParquet(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func doRequest(ctx context.Context, client *http.Client, method, endpoint string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// writeBody indents JSON without reordering keys.
func writeBody(w io.Writer, raw []byte) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, trimmed, "", "  "); err != nil {
		_, _ = fmt.Fprintln(w, string(trimmed))
		return
	}
	_, _ = fmt.Fprintln(w, out.String())
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: examlensctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  ask <question>   POST /v1/chat (or /chat with -compat)")
	_, _ = fmt.Fprintln(w, "  schema           GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  health           GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready            GET /v1/ready")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
