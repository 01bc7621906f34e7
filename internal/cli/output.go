package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/search"
)

var (
	foundColor      = color.New(color.FgRed, color.Bold)
	exhaustedColor  = color.New(color.FgGreen)
	incompleteColor = color.New(color.FgYellow)
	dimColor        = color.New(color.Faint)
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(o.errOut, string(data))
	} else {
		fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.out, string(data))
	} else {
		fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuditResult:
		o.printAuditResult(v)
	case DictionaryListing:
		o.printDictionary(v)
	case AccountList:
		o.printAccounts(v)
	case HistoryListing:
		o.printHistory(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// AuditResult is the printable outcome of one audit
type AuditResult struct {
	RunID      string `json:"run_id"`
	Identifier string `json:"identifier"`
	Result     string `json:"result"`
	Candidate  string `json:"candidate,omitempty"`
	MatchIndex int    `json:"match_index"`
	Phase      string `json:"phase"`
	Total      int    `json:"total"`
	Attempts   int    `json:"attempts"`
	Skipped    int    `json:"skipped"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func newAuditResult(r *search.Report) AuditResult {
	res := AuditResult{
		RunID:      string(r.RunID),
		Identifier: string(r.Identifier),
		Result:     string(r.Result.Kind),
		MatchIndex: r.Result.Index,
		Phase:      r.Phase.String(),
		Total:      r.Total,
		Attempts:   r.Attempts,
		Skipped:    r.Skipped,
		DurationMS: r.Duration().Milliseconds(),
	}
	if r.Result.IsFound() {
		res.Candidate = string(r.Result.Candidate)
		res.Phase = r.Result.Phase.String()
	}
	if r.Err != nil {
		res.Error = r.Err.Error()
	}
	return res
}

// DictionaryListing is the active dictionary in priority order
type DictionaryListing struct {
	Words []string `json:"words"`
}

// AccountList is the set of accounts in the store
type AccountList struct {
	Accounts []string `json:"accounts"`
}

// HistoryListing is a page of past runs, newest first
type HistoryListing struct {
	Runs []*model.RunRecord `json:"runs"`
}

func (o *Output) printAuditResult(r AuditResult) {
	switch model.ResultKind(r.Result) {
	case model.ResultFound:
		foundColor.Fprintf(o.out, "Weak password found for %s: %s\n", r.Identifier, r.Candidate)
		fmt.Fprintf(o.out, "Matched candidate %d of %d (%s phase)\n", r.MatchIndex+1, r.Total, r.Phase)
	case model.ResultExhausted:
		exhaustedColor.Fprintf(o.out, "No matches for %s\n", r.Identifier)
		fmt.Fprintf(o.out, "Searched all %d candidates\n", r.Total)
	default:
		incompleteColor.Fprintf(o.out, "Search incomplete for %s\n", r.Identifier)
		if r.Error != "" {
			fmt.Fprintf(o.out, "Reason: %s\n", r.Error)
		}
		fmt.Fprintf(o.out, "Tried %d of %d candidates\n", r.Attempts, r.Total)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(o.out, "Unverifiable: %d\n", r.Skipped)
	}
	dimColor.Fprintf(o.out, "Run %s\n", r.RunID)
}

func (o *Output) printDictionary(d DictionaryListing) {
	for i, w := range d.Words {
		fmt.Fprintf(o.out, "%3d  %s\n", i+1, w)
	}
	fmt.Fprintf(o.out, "%d words\n", len(d.Words))
}

func (o *Output) printAccounts(a AccountList) {
	if len(a.Accounts) == 0 {
		fmt.Fprintln(o.out, "No accounts")
		return
	}
	for _, name := range a.Accounts {
		fmt.Fprintln(o.out, name)
	}
}

func (o *Output) printHistory(h HistoryListing) {
	if len(h.Runs) == 0 {
		fmt.Fprintln(o.out, "No runs recorded")
		return
	}
	for _, r := range h.Runs {
		c := incompleteColor
		switch r.Result {
		case model.ResultFound:
			c = foundColor
		case model.ResultExhausted:
			c = exhaustedColor
		}
		fmt.Fprintf(o.out, "%s  %s  %-12s ", r.FinishedAt.Format(time.RFC3339), r.ID, r.Identifier)
		c.Fprintf(o.out, "%-10s", r.Result)
		fmt.Fprintf(o.out, " attempts=%d skipped=%d\n", r.Attempts, r.Skipped)
	}
}
