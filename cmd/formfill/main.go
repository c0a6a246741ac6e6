// Package main provides the formfill command: autofill the forms of a page
// from a document store, list its fields, or fill a single field.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/entrhq/formfill/pkg/autofill"
	"github.com/entrhq/formfill/pkg/browser"
	appconfig "github.com/entrhq/formfill/pkg/config"
	"github.com/entrhq/formfill/pkg/dom"
	"github.com/entrhq/formfill/pkg/fields"
	"github.com/entrhq/formfill/pkg/interactive"
	"github.com/entrhq/formfill/pkg/llm/tokenizer"
	"github.com/entrhq/formfill/pkg/logging"
	"github.com/entrhq/formfill/pkg/security/sites"
	"github.com/entrhq/formfill/pkg/types"
)

const version = "0.1.0"

// Config holds the command line configuration
type Config struct {
	File             string
	Output           string
	URL              string
	Headless         bool
	List             bool
	IncludeSensitive bool
	Field            string
	Check            bool
	RunConfig        string
	ConfigPath       string
	Verbose          bool
	ShowVersion      bool
	Credentials      appconfig.Overrides

	stdin  io.Reader
	stdout io.Writer
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("formfill v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		log.Fatalf("formfill: %v", err)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *Config {
	config := &Config{stdin: os.Stdin, stdout: os.Stdout}

	flag.StringVar(&config.File, "file", "", "HTML file to fill")
	flag.StringVar(&config.Output, "out", "", "Write the filled document here")
	flag.StringVar(&config.URL, "url", "", "Page URL to open in a browser")
	flag.BoolVar(&config.Headless, "headless", true, "Run the browser without a window")
	flag.BoolVar(&config.List, "list", false, "Print fillable fields as JSON and exit")
	flag.BoolVar(&config.IncludeSensitive, "include-sensitive", false, "Include sensitive fields in -list")
	flag.StringVar(&config.Field, "field", "", "Fill only the field with this uid")
	flag.BoolVar(&config.Check, "check", false, "Report whether the page has fillable fields")
	flag.StringVar(&config.RunConfig, "run-config", "", "Run file (YAML)")
	flag.StringVar(&config.ConfigPath, "config", "", "Settings file (default ~/.formfill/config.json)")
	flag.BoolVar(&config.Verbose, "v", false, "Print every event")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")
	flag.StringVar(&config.Credentials.APIKey, "api-key", "", "API key (or set OPENAI_API_KEY)")
	flag.StringVar(&config.Credentials.BaseURL, "base-url", "", "API base URL (or set OPENAI_BASE_URL)")
	flag.StringVar(&config.Credentials.Model, "model", "", "Model (or set FORMFILL_MODEL)")
	flag.StringVar(&config.Credentials.DocumentStoreID, "store", "", "Document store id (or set FORMFILL_DOCUMENT_STORE_ID)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "formfill - fill web forms from your documents\n\n")
		fmt.Fprintf(os.Stderr, "Usage: formfill [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  formfill -file form.html -out filled.html\n")
		fmt.Fprintf(os.Stderr, "  formfill -url https://example.com/apply -headless=false\n")
		fmt.Fprintf(os.Stderr, "  formfill -file form.html -list -include-sensitive\n")
		fmt.Fprintf(os.Stderr, "  formfill -file form.html -field ff-3\n")
		fmt.Fprintf(os.Stderr, "  formfill -run-config run.yaml\n")
	}

	flag.Parse()
	return config
}

// runConfig merges the run file with flags; flags win when set.
func (c *Config) runConfig() (*RunConfig, error) {
	rc := DefaultRunConfig()
	if c.RunConfig != "" {
		loaded, err := loadRunConfig(c.RunConfig)
		if err != nil {
			return nil, err
		}
		rc = loaded
	}

	if c.File != "" || c.URL != "" {
		rc.File, rc.URL = c.File, c.URL
	}
	if c.Output != "" {
		rc.Output = c.Output
	}
	if isFlagSet("headless") {
		rc.Headless = c.Headless
	}
	if c.Verbose {
		rc.Logging.Verbosity = "verbose"
	}

	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return rc, nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(ctx context.Context, config *Config) error {
	rc, err := config.runConfig()
	if err != nil {
		return err
	}

	if err := appconfig.Initialize(config.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	logger, err := logging.NewLogger("formfill")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	defer logger.Close()
	logger.SetLevel(rc.LogLevel())

	page, finish, err := openPage(rc, logger)
	if err != nil {
		return err
	}
	defer finish()

	switch {
	case config.Check:
		ok, err := page.HasFillableForms(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(config.stdout, ok)
		return nil
	case config.List:
		return listFields(ctx, config.stdout, page, config.IncludeSensitive)
	}

	policy, err := sitePolicy(rc)
	if err != nil {
		return err
	}
	tuning := rc.ApplyTuning(appconfig.GetTuning())
	creds := appconfig.CredentialSource{Overrides: config.Credentials}
	out := &printer{w: config.stdout, verbose: rc.Logging.Verbosity == "verbose" || rc.Logging.Verbosity == "debug"}

	if config.Field != "" {
		consentCtx, stopConsent := context.WithCancel(ctx)
		defer stopConsent()

		var confirmer interactive.Confirmer = surveyConfirmer{}
		if !isTerminal(config.stdin) {
			confirmer = newConsent(consentCtx, config.stdin, out)
		}

		// One field needs no exact token count.
		filler := interactive.NewFiller(creds,
			interactive.WithConfirmer(confirmer),
			interactive.WithAnswererFactory(autofill.NewAnswerer(tuning.RequestTimeout, logger, nil)),
			interactive.WithSitePolicy(policy),
			interactive.WithEventHandler(out.handle),
			interactive.WithLogger(logger.With("interactive")),
		)
		outcome, err := fillOne(ctx, page, filler, config.Field, tuning.HoverDebounce)
		if err != nil {
			return err
		}
		if outcome.Status == types.FieldStatusError {
			return outcome.Err
		}
	} else {
		tok, err := tokenizer.New()
		if err != nil {
			logger.Warnf("tokenizer unavailable, using estimates: %v", err)
		}
		answerer := autofill.NewAnswerer(tuning.RequestTimeout, logger, tok)
		engine := autofill.NewEngine(creds,
			autofill.WithTuning(tuning),
			autofill.WithSitePolicy(policy),
			autofill.WithAnswererFactory(answerer),
			autofill.WithEventHandler(out.handle),
			autofill.WithLogger(logger.With("autofill")),
		)
		if _, err := engine.Run(ctx, page); err != nil {
			return err
		}
	}

	return writeOutput(page, rc.Output)
}

// openPage opens the run target. finish releases it.
func openPage(rc *RunConfig, logger *logging.Logger) (fields.Page, func(), error) {
	if rc.File != "" {
		f, err := os.Open(rc.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", rc.File, err)
		}
		defer f.Close()

		abs, err := filepath.Abs(rc.File)
		if err != nil {
			abs = rc.File
		}
		doc, err := dom.Parse(f, "file://"+filepath.ToSlash(abs))
		if err != nil {
			return nil, nil, err
		}
		return doc, func() {}, nil
	}

	manager := browser.NewSessionManager(browser.WithMaxSessions(1), browser.WithLogger(logger.With("browser")))
	if err := manager.Initialize(); err != nil {
		return nil, nil, err
	}
	session, err := manager.StartSession("formfill", browser.SessionOptions{Headless: rc.Headless})
	if err != nil {
		_ = manager.Shutdown()
		return nil, nil, err
	}
	finish := func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("browser shutdown: %v", err)
		}
	}
	if err := session.Navigate(rc.URL, browser.NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
		finish()
		return nil, nil, err
	}
	logger.Infof("opened %s", rc.URL)
	return browserPage{FormPage: session.Forms(), session: session}, finish, nil
}

// browserPage keeps the session reachable for output.
type browserPage struct {
	*browser.FormPage
	session *browser.Session
}

func sitePolicy(rc *RunConfig) (*sites.Policy, error) {
	var saved *sites.Policy
	if s := appconfig.GetSites(); s != nil {
		p, err := s.Policy()
		if err != nil {
			return nil, err
		}
		saved = p
	}
	return rc.SitePolicy(saved)
}

func listFields(ctx context.Context, w io.Writer, page fields.Page, includeSensitive bool) error {
	descs, err := page.ListFields(ctx, includeSensitive)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(descs)
}

// writeOutput saves the filled document when an output path is set.
func writeOutput(page fields.Page, path string) error {
	if path == "" {
		return nil
	}

	var content string
	switch p := page.(type) {
	case *dom.Document:
		content = p.String()
	case browserPage:
		html, err := p.session.Content()
		if err != nil {
			return err
		}
		content = html
	default:
		return fmt.Errorf("cannot write output for %T", page)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
