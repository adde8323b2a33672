package domain

const (
	RemediationStatusSuccess = "success"
	NoMisconfigurationsMsg   = "No known misconfigurations detected"
)

// RemediationResult reports a single remediation pass over one resource.
type RemediationResult struct {
	Status     string
	ResourceID string
	Message    string
	Actions    []string
	// Notes lists checks that were skipped, e.g. because of an unparseable date.
	Notes []string
}

type ScoringOutcome string

const (
	ScoringCompleted        ScoringOutcome = "completed"
	ScoringNothingToAnalyze ScoringOutcome = "nothing_to_analyze"
	ScoringFailed           ScoringOutcome = "failed"
)

func (o ScoringOutcome) Status() string {
	switch o {
	case ScoringCompleted:
		return "Risk analysis completed"
	case ScoringNothingToAnalyze:
		return "No resources to analyze"
	default:
		return "Error: risk analysis failed"
	}
}

// ScoringResult reports a full-inventory scoring pass. Err holds the cause of a
// failed pass and is only meant for logs.
type ScoringResult struct {
	RunID        string
	Outcome      ScoringOutcome
	Status       string
	UpdatedCount int
	SkippedCount int
	Err          error
}

// RiskAssessment is the score and label derived for one resource.
type RiskAssessment struct {
	Score   float64
	Level   RiskLevel
	Outlier bool
}
