package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrMissingRequired is returned by Validate when one of the mandatory inputs
// (url, user, wordlist) was not supplied. The CLI maps it to exit status 2.
var ErrMissingRequired = errors.New("missing required input")

// Token parser names accepted by TokenParser.
const (
	TokenParserRegex = "regex"
	TokenParserHTML  = "html"
)

// Config holds all the configuration for a Loginprobe run.
// Fields are populated by Viper from flags, environment and an optional config file.
type Config struct {
	BaseURL            string
	Username           string
	WordlistFile       string
	Delay              time.Duration
	GetTimeout         time.Duration // Timeout for the token page fetch
	PostTimeout        time.Duration // Timeout for the credential submit, longer than GetTimeout by default
	LoginPath          string        // Resolved against BaseURL as an absolute path
	TokenField         string        // Name of the hidden input carrying the CSRF token
	TokenParser        string        // "regex" or "html"
	SuccessMarker      string        // Case-insensitive body marker of a successful login
	UserAgent          string
	InsecureSkipVerify bool
	OutputFile         string
	OutputFormat       string
	Verbosity          string
	NoColor            bool // To disable colored output
	Silent             bool // To suppress non-critical logs
}

// GetDefaultConfig returns a Config struct populated with default values.
// Viper in main.go registers these as flag defaults.
func GetDefaultConfig() *Config {
	return &Config{
		Delay:         200 * time.Millisecond,
		GetTimeout:    10 * time.Second,
		PostTimeout:   15 * time.Second,
		LoginPath:     "/login",
		TokenField:    "csrf_token",
		TokenParser:   TokenParserRegex,
		SuccessMarker: "login successful",
		UserAgent:     "Loginprobe/1.0 (+authorized-testing)",
		OutputFormat:  "text",
		Verbosity:     "info",
	}
}

// Validate checks the Config after it has been populated by Viper.
// Missing mandatory inputs are reported together and wrap ErrMissingRequired.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "--url")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "--user")
	}
	if strings.TrimSpace(c.WordlistFile) == "" {
		missing = append(missing, "--wordlist")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	if _, err := c.RootURL(); err != nil {
		return err
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.GetTimeout <= 0 || c.PostTimeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}
	if c.TokenField == "" {
		return fmt.Errorf("tokenField cannot be empty")
	}
	if c.TokenParser != TokenParserRegex && c.TokenParser != TokenParserHTML {
		return fmt.Errorf("tokenParser must be %q or %q, got %q", TokenParserRegex, TokenParserHTML, c.TokenParser)
	}
	if c.SuccessMarker == "" {
		return fmt.Errorf("successMarker cannot be empty")
	}
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("outputFormat must be text or json, got %q", c.OutputFormat)
	}
	return nil
}

// RootURL parses BaseURL and guarantees a trailing slash on its path,
// so it addresses the site root page holding the login form.
func (c *Config) RootURL() (*url.URL, error) {
	raw := strings.TrimSpace(c.BaseURL)
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: missing host", c.BaseURL)
	}
	return u, nil
}

// LoginURL resolves LoginPath against the root URL.
// An absolute LoginPath ("/login") replaces the base path entirely.
func (c *Config) LoginURL() (*url.URL, error) {
	root, err := c.RootURL()
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(c.LoginPath)
	if err != nil {
		return nil, fmt.Errorf("invalid login path %q: %w", c.LoginPath, err)
	}
	return root.ResolveReference(ref), nil
}

// String (Config method) remains useful for debugging.
func (c *Config) String() string {
	return fmt.Sprintf("URL: %s, User: %s, Wordlist: %s, Delay: %s, GetTimeout: %s, PostTimeout: %s, LoginPath: %s, TokenField: %s, TokenParser: %s, Verbosity: %s",
		c.BaseURL, c.Username, c.WordlistFile, c.Delay, c.GetTimeout, c.PostTimeout, c.LoginPath, c.TokenField, c.TokenParser, c.Verbosity)
}
