package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/de-tools/posture-guard/pkg/models/domain"
)

type TableConfig struct {
	IDWidth     int
	TypeWidth   int
	RegionWidth int
	ScoreWidth  int
	LevelWidth  int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		IDWidth:     14,
		TypeWidth:   8,
		RegionWidth: 12,
		ScoreWidth:  8,
		LevelWidth:  6,
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

const resourcesTemplate = `
Inventory: {{len .}} resources

{{separator}}
{{formatRow "ID" "Type" "Region" "Score" "Level"}}
{{separator}}
{{range .}}{{formatRow .ID (print .Type) .Region (score .RiskScore) (level .RiskLevel)}}
{{end}}{{separator}}
`

const remediationTemplate = `
Resource: {{.ResourceID}}
Status:   {{.Status}}
Result:   {{.Message}}
{{if .Actions}}
Actions performed:
{{range .Actions}}  - {{.}}
{{end}}{{end}}{{if .Notes}}
Notes:
{{range .Notes}}  - {{.}}
{{end}}{{end}}`

const scoringTemplate = `
Run:     {{.RunID}}
Status:  {{.Status}}
Updated: {{.UpdatedCount}}
Skipped: {{.SkippedCount}}
`

const runsTemplate = `
{{range .}}{{.StartedAt.Format "2006-01-02 15:04:05"}}  {{printf "%-9s" .Trigger}}  {{.Status}} (updated {{.UpdatedCount}}, skipped {{.SkippedCount}})  {{.RunID}}
{{else}}No scoring runs recorded
{{end}}`

func (c *Reporter) funcs() template.FuncMap {
	return template.FuncMap{
		"formatRow": func(id, rt, region, score, level string) string {
			return fmt.Sprintf("| %-*s | %-*s | %-*s | %*s | %-*s |",
				c.config.IDWidth, id,
				c.config.TypeWidth, rt,
				c.config.RegionWidth, region,
				c.config.ScoreWidth, score,
				c.config.LevelWidth, level)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.IDWidth+2),
				strings.Repeat("-", c.config.TypeWidth+2),
				strings.Repeat("-", c.config.RegionWidth+2),
				strings.Repeat("-", c.config.ScoreWidth+2),
				strings.Repeat("-", c.config.LevelWidth+2))
		},
		"score": func(s *float64) string {
			if s == nil {
				return "-"
			}
			return fmt.Sprintf("%.2f", *s)
		},
		"level": func(l *domain.RiskLevel) string {
			if l == nil {
				return "-"
			}
			return string(*l)
		},
	}
}

func (c *Reporter) render(name, tmpl string, data interface{}) error {
	t, err := template.New(name).Funcs(c.funcs()).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(c.writer, data)
}

func (c *Reporter) Resources(resources []domain.Resource) error {
	return c.render("resources", resourcesTemplate, resources)
}

func (c *Reporter) Remediation(result *domain.RemediationResult) error {
	return c.render("remediation", remediationTemplate, result)
}

func (c *Reporter) Scoring(result domain.ScoringResult) error {
	return c.render("scoring", scoringTemplate, result)
}

func (c *Reporter) Runs(runs []domain.ScoringRun) error {
	return c.render("runs", runsTemplate, runs)
}
