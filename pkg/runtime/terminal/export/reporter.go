package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

// CSVHeader matches the columns of the account dump consumed by the
// lifecycle scripts.
var CSVHeader = []string{"userPrincipalName", "id", "accountEnabled", "lastActivity"}

type TableConfig struct {
	UPNWidth      int
	IDWidth       int
	EnabledWidth  int
	ActivityWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		UPNWidth:      60,
		IDWidth:       36,
		EnabledWidth:  7,
		ActivityWidth: 20,
	}
}

type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(upn, id string, enabled any, activity string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*v | %-*s |",
				c.config.UPNWidth, truncate(upn, c.config.UPNWidth),
				c.config.IDWidth, id,
				c.config.EnabledWidth, enabled,
				c.config.ActivityWidth, activity)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.UPNWidth+2),
				strings.Repeat("-", c.config.IDWidth+2),
				strings.Repeat("-", c.config.EnabledWidth+2),
				strings.Repeat("-", c.config.ActivityWidth+2))
		},
		"activity": formatActivity,
		"date": func(t time.Time) string {
			return t.UTC().Format("2006-01-02")
		},
		"stamp": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
	}
}

const runTemplate = `
=== {{.Kind}} ===
Run: {{if .ID}}{{.ID}}{{else}}not recorded{{end}}
Started: {{stamp .StartedAt}} ({{.Elapsed}})
Threshold: {{date .Threshold}}
Scanned: {{.Scanned}}  Matched: {{.Matched}}  Excluded: {{.Excluded}}
{{- if ne .FailureType "none"}}
Retrieval {{.FailureType}} failed{{if .Error}}: {{.Error}}{{end}}
{{- end}}

{{separator}}
{{formatRow "User principal name" "Id" "Enabled" "Last activity"}}
{{separator}}
{{range .Candidates}}{{formatRow .UserPrincipalName .ID .AccountEnabled (activity .LastActivity)}}
{{end}}{{separator}}
`

// HandleRun prints a run summary followed by its candidate table.
func (c *Reporter) HandleRun(run domain.Run) error {
	t, err := template.New("run").Funcs(c.funcs()).Parse(runTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, run)
}

const runsTemplate = `{{range .}}{{.ID}}  {{printf "%-8s" .Kind}}  {{stamp .StartedAt}}  matched={{.Matched}} scanned={{.Scanned}} failure={{.FailureType}}
{{else}}no runs recorded
{{end}}`

func (c *Reporter) HandleRuns(runs []domain.Run) error {
	t, err := template.New("runs").Funcs(c.funcs()).Parse(runsTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, runs)
}

type ExemptionSummary struct {
	Mode    string
	Size    int
	Members []string
}

const exemptionsTemplate = `Exemption mode: {{.Mode}}
Entries: {{.Size}}
{{range .Members}}- {{.}}
{{end}}`

func (c *Reporter) HandleExemptions(summary ExemptionSummary) error {
	t, err := template.New("exemptions").Parse(exemptionsTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, summary)
}

// WriteCSV writes the run candidates with CSVHeader columns.
func WriteCSV(w io.Writer, run domain.Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range run.Candidates {
		record := []string{
			c.UserPrincipalName,
			c.ID,
			strconv.FormatBool(c.AccountEnabled),
			formatActivity(c.LastActivity),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatActivity(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

// truncate counts runes so that multi-byte names are never cut mid-character.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "~"
}
