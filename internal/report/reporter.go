package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/rafabd1/Loginprobe/internal/core"
	"github.com/rafabd1/Loginprobe/internal/utils"
)

// AttemptRecord is one attempt as written to the report file.
type AttemptRecord struct {
	Username   string       `json:"username"`
	Password   string       `json:"password"`
	Outcome    core.Outcome `json:"outcome"`
	StatusCode int          `json:"status_code,omitempty"`
	FirstLine  string       `json:"first_line,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// RunReport is the end-of-run document.
type RunReport struct {
	Target    string          `json:"target"`
	Username  string          `json:"username"`
	Attempts  []AttemptRecord `json:"attempts"`
	Found     bool            `json:"found"`
	Password  string          `json:"password,omitempty"`
	Generated time.Time       `json:"generated_at"`
}

// Reporter prints one console line per completed attempt and the final verdict.
// It implements core.Observer.
type Reporter struct {
	out   io.Writer
	found *color.Color
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer, noColor bool) *Reporter {
	found := color.New(color.FgGreen, color.Bold)
	if noColor {
		found.DisableColor()
	}
	return &Reporter{out: out, found: found}
}

// AttemptCompleted prints the summary line of an attempt that reached the login POST.
func (r *Reporter) AttemptCompleted(a core.Attempt) {
	fmt.Fprintf(r.out, "[TRY] user='%s' pass='%s' => %d : %s\n", a.Username, a.Password, a.StatusCode, utils.FirstLine(a.Body))
}

func (r *Reporter) CredentialFound(c core.Credential) {
	r.found.Fprintf(r.out, "[FOUND] Credentials valid! user='%s' password='%s'\n", c.Username, c.Password)
}

func (r *Reporter) NothingFound() {
	fmt.Fprintln(r.out, "[RESULT] No valid credentials found in the supplied wordlist.")
}

// BuildReport converts a run summary into its report document.
func BuildReport(target, username string, summary *core.Summary) RunReport {
	rep := RunReport{
		Target:    target,
		Username:  username,
		Attempts:  []AttemptRecord{},
		Generated: time.Now().UTC(),
	}
	if summary == nil {
		return rep
	}
	for _, a := range summary.Attempts {
		rec := AttemptRecord{
			Username:   a.Username,
			Password:   a.Password,
			Outcome:    a.Outcome,
			StatusCode: a.StatusCode,
			FirstLine:  utils.FirstLine(a.Body),
		}
		if a.Err != nil {
			rec.Error = a.Err.Error()
		}
		rep.Attempts = append(rep.Attempts, rec)
	}
	if summary.Found != nil {
		rep.Found = true
		rep.Password = summary.Found.Password
	}
	return rep
}

// GenerateReport writes the report in the given format ("json" or "text")
// to outputPath, or to stdout when outputPath is empty.
func GenerateReport(rep RunReport, outputPath string, format string) error {
	var outputWriter io.Writer = os.Stdout
	if outputPath != "" {
		if err := utils.EnsureFilepathExists(outputPath); err != nil {
			return err
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		outputWriter = f
	}
	return WriteReport(outputWriter, rep, format)
}

// WriteReport renders rep to w.
func WriteReport(w io.Writer, rep RunReport, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rep)
	}

	if _, err := fmt.Fprintf(w, "Target: %s\nUsername: %s\nAttempts: %d\n---\n", rep.Target, rep.Username, len(rep.Attempts)); err != nil {
		return err
	}
	for _, a := range rep.Attempts {
		line := fmt.Sprintf("%-8s pass='%s'", a.Outcome, a.Password)
		if a.StatusCode != 0 {
			line += fmt.Sprintf(" status=%d", a.StatusCode)
		}
		if a.Error != "" {
			line += " error=" + a.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	verdict := "Result: no valid credentials found"
	if rep.Found {
		verdict = fmt.Sprintf("Result: FOUND password='%s'", rep.Password)
	}
	_, err := fmt.Fprintf(w, "---\n%s\n", verdict)
	return err
}
