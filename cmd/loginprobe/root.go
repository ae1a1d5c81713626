package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rafabd1/Loginprobe/internal/config"
	"github.com/rafabd1/Loginprobe/internal/core"
	"github.com/rafabd1/Loginprobe/internal/input"
	"github.com/rafabd1/Loginprobe/internal/networking"
	"github.com/rafabd1/Loginprobe/internal/report"
	"github.com/rafabd1/Loginprobe/internal/utils"
)

const envPrefix = "LOGINPROBE"

// usageError marks failures caused by bad invocation; they exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "loginprobe --url URL --user USER --wordlist FILE [--delay-ms 200]",
		Short: "Sequential password trial against a CSRF-protected login form",
		Long: `Loginprobe tries each password of a wordlist, in order, against a web login form
you are authorized to test. For every candidate it fetches the login page, extracts
the csrf_token hidden field and session cookie, posts the credentials and stops at
the first response containing the success marker.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{err: fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	registerFlags(cmd.Flags())
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func registerFlags(flags *pflag.FlagSet) {
	defaults := config.GetDefaultConfig()

	flags.String("config", "", "Optional config file (yaml, toml or json) providing any of the flags below")
	flags.String("url", "", "Base URL of the target site, e.g. http://localhost:8080 (required)")
	flags.String("user", "", "Username to authenticate as (required)")
	flags.String("wordlist", "", "Path to a line-delimited password list (required)")
	flags.Int("delay-ms", int(defaults.Delay/time.Millisecond), "Delay in milliseconds after each failed attempt")
	flags.Duration("get-timeout", defaults.GetTimeout, "Timeout for fetching the login page")
	flags.Duration("post-timeout", defaults.PostTimeout, "Timeout for submitting credentials")
	flags.String("login-path", defaults.LoginPath, "Path the credentials are posted to, resolved against --url")
	flags.String("token-field", defaults.TokenField, "Name of the hidden input holding the CSRF token")
	flags.String("token-parser", defaults.TokenParser, "Token extraction: regex (text pattern) or html (tokenizer)")
	flags.String("success-marker", defaults.SuccessMarker, "Case-insensitive text marking a successful login")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	flags.Bool("insecure", false, "Skip TLS certificate verification")
	flags.String("output", "", "Write an end-of-run report to this file")
	flags.String("format", defaults.OutputFormat, "Report format (text, json)")
	flags.String("loglevel", defaults.Verbosity, "Log level (debug, info, warn, error, fatal)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("silent", false, "Suppress debug and info logs")
}

// loadConfig merges flags, LOGINPROBE_* environment variables and the
// optional config file into a validated Config.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &config.Config{
		BaseURL:            v.GetString("url"),
		Username:           v.GetString("user"),
		WordlistFile:       v.GetString("wordlist"),
		Delay:              time.Duration(v.GetInt("delay-ms")) * time.Millisecond,
		GetTimeout:         v.GetDuration("get-timeout"),
		PostTimeout:        v.GetDuration("post-timeout"),
		LoginPath:          v.GetString("login-path"),
		TokenField:         v.GetString("token-field"),
		TokenParser:        strings.ToLower(v.GetString("token-parser")),
		SuccessMarker:      v.GetString("success-marker"),
		UserAgent:          v.GetString("user-agent"),
		InsecureSkipVerify: v.GetBool("insecure"),
		OutputFile:         v.GetString("output"),
		OutputFormat:       strings.ToLower(v.GetString("format")),
		Verbosity:          v.GetString("loglevel"),
		NoColor:            v.GetBool("no-color"),
		Silent:             v.GetBool("silent"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, &usageError{err: err}
	}
	return cfg, nil
}

// execute runs one trial session. Only fatal conditions are returned:
// an unreadable wordlist, an invalid setup or cancellation.
func execute(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger := utils.NewLogger(stdout, stderr, utils.StringToLogLevel(cfg.Verbosity), cfg.NoColor, cfg.Silent)
	logger.Debugf("Configuration: %s", cfg)

	candidates, err := input.NewReader().ReadCandidatesFromFile(cfg.WordlistFile)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Fprintln(stdout, "Wordlist is empty.")
		return nil
	}

	client, err := networking.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("error creating HTTP client: %w", err)
	}
	defer client.CloseIdleConnections()

	runner, err := core.NewRunner(cfg, client, report.NewReporter(stdout, cfg.NoColor), logger)
	if err != nil {
		return err
	}

	logger.Infof("Loaded %d candidates. Trying user '%s' against %s", len(candidates), cfg.Username, cfg.BaseURL)
	summary, runErr := runner.Run(ctx, candidates)

	if cfg.OutputFile != "" {
		root, _ := cfg.RootURL()
		rep := report.BuildReport(root.String(), cfg.Username, summary)
		if err := report.GenerateReport(rep, cfg.OutputFile, cfg.OutputFormat); err != nil {
			logger.Errorf("Error generating report: %v", err)
		} else {
			logger.Infof("Report written to %s in %s format.", cfg.OutputFile, cfg.OutputFormat)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return runErr
	}
	return nil
}

// exitCode prints the outcome of err and maps it to a process status.
func exitCode(cmd *cobra.Command, err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", ue.err, cmd.UsageString())
		return 2
	}
	fmt.Fprintf(stderr, "Fatal error: %v\n", err)
	return 1
}
