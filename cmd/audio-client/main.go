package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/book-expert/yomitan-audio/internal/core"
)

// Flag descriptions.
const (
	flagServerDesc  = "Base URL of the yomitan-audio service"
	flagTermDesc    = "Term to look up"
	flagReadingDesc = "Kana reading of the term"
	flagSourcesDesc = "Comma-separated audio sources"
	flagAPIKeyDesc  = "API key sent as apiKey"
	flagOutputDesc  = "Download the first candidate to this file (.mp3)"
	flagHealthDesc  = "Check service health and exit"
	flagTimeoutDesc = "Request timeout"
)

// Flag names.
const (
	flagServer  = "server"
	flagTerm    = "term"
	flagReading = "reading"
	flagSources = "sources"
	flagAPIKey  = "api-key"
	flagOutput  = "output"
	flagHealth  = "health"
	flagTimeout = "timeout"
)

const (
	defaultServer  = "http://127.0.0.1:8080"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4096
)

var (
	// ErrTermRequired indicates a lookup without --term.
	ErrTermRequired = errors.New("--term must be provided")
	// ErrNoCandidates indicates --output was given but the list was empty.
	ErrNoCandidates = errors.New("no audio candidates to download")
	// ErrUnexpectedStatus indicates a non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server  string
	term    string
	reading string
	sources string
	apiKey  string
	output  string
	health  bool
	timeout time.Duration
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	client := &http.Client{}

	if flags.health {
		err = checkHealth(ctx, client, flags.server)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out, "service is healthy")

		return nil
	}

	if flags.term == "" {
		return ErrTermRequired
	}

	resp, err := fetchList(ctx, client, flags)
	if err != nil {
		return err
	}

	for _, candidate := range resp.AudioSources {
		_, _ = fmt.Fprintf(out, "%s\t%s\n", candidate.Name, candidate.URL)
	}

	if flags.output == "" {
		return nil
	}

	if len(resp.AudioSources) == 0 {
		return ErrNoCandidates
	}

	err = download(ctx, client, resp.AudioSources[0].URL, flags.output)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "saved %s\n", flags.output)

	return nil
}

// parseFlags parses args into an appFlags value.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	set := flag.NewFlagSet("audio-client", flag.ContinueOnError)
	set.StringVar(&flags.server, flagServer, defaultServer, flagServerDesc)
	set.StringVar(&flags.term, flagTerm, "", flagTermDesc)
	set.StringVar(&flags.reading, flagReading, "", flagReadingDesc)
	set.StringVar(&flags.sources, flagSources, "", flagSourcesDesc)
	set.StringVar(&flags.apiKey, flagAPIKey, "", flagAPIKeyDesc)
	set.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	set.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	set.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	err := set.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	return flags, nil
}

// listURL builds the /audio/list request URL.
func listURL(flags appFlags) string {
	query := url.Values{}
	query.Set("term", flags.term)
	query.Set("reading", flags.reading)

	if flags.sources != "" {
		query.Set("sources", flags.sources)
	}

	if flags.apiKey != "" {
		query.Set("apiKey", flags.apiKey)
	}

	return flags.server + "/audio/list?" + query.Encode()
}

func fetchList(ctx context.Context, client *http.Client, flags appFlags) (*core.Response, error) {
	body, err := get(ctx, client, listURL(flags))
	if err != nil {
		return nil, err
	}

	var resp core.Response

	err = json.Unmarshal(body, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	return &resp, nil
}

func download(ctx context.Context, client *http.Client, audioURL, output string) error {
	data, err := get(ctx, client, audioURL)
	if err != nil {
		return err
	}

	err = os.WriteFile(output, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	return nil
}

func checkHealth(ctx context.Context, client *http.Client, server string) error {
	_, err := get(ctx, client, server+"/healthz")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

func get(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, detail)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
