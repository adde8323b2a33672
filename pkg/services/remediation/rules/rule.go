package rules

import (
	"fmt"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/domain"
)

// Change is one corrective field write produced by a rule.
type Change struct {
	Field  string
	Value  any
	Action string
}

type NoteOutcome string

const (
	OutcomeSkippedUnparseableDate NoteOutcome = "skipped_unparseable_date"
)

// Note records a check that was deliberately not applied.
type Note struct {
	Check   string
	Outcome NoteOutcome
	Detail  string
}

func (n Note) String() string {
	return fmt.Sprintf("%s: %s (%s)", n.Check, n.Outcome, n.Detail)
}

// Evaluation is the ordered output of one rule over one attribute snapshot.
type Evaluation struct {
	Changes []Change
	Notes   []Note
}

func (e *Evaluation) add(field string, value any, action string) {
	e.Changes = append(e.Changes, Change{Field: field, Value: value, Action: action})
}

func (e *Evaluation) note(check string, outcome NoteOutcome, detail string) {
	e.Notes = append(e.Notes, Note{Check: check, Outcome: outcome, Detail: detail})
}

// Actions returns the action descriptions in evaluation order.
func (e Evaluation) Actions() []string {
	actions := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		actions = append(actions, c.Action)
	}
	return actions
}

// Updates merges all changes into one payload; a later change to the same
// field replaces an earlier one.
func (e Evaluation) Updates() domain.FieldUpdates {
	updates := make(domain.FieldUpdates, len(e.Changes))
	for _, c := range e.Changes {
		updates[c.Field] = c.Value
	}
	return updates
}

// Rule inspects the attributes of one resource type and returns the fixes
// it requires. Rules must be pure and safe to call concurrently.
type Rule interface {
	ResourceType() domain.ResourceType
	Evaluate(attrs domain.Attributes, now time.Time) Evaluation
}

type Catalog interface {
	// Register adds a rule. Panics if the type already has one.
	Register(rule Rule)
	Lookup(rt domain.ResourceType) (Rule, bool)
	// Evaluate dispatches on the resource type; unknown types yield no changes.
	Evaluate(resource domain.Resource, now time.Time) Evaluation
}

type catalog struct {
	rules map[domain.ResourceType]Rule
}

func NewCatalog() Catalog {
	return &catalog{rules: make(map[domain.ResourceType]Rule)}
}

// NewDefaultCatalog returns a catalog with the built-in rule for every known
// resource type.
func NewDefaultCatalog() Catalog {
	c := NewCatalog()
	c.Register(ObjectStoreRule{})
	c.Register(VMRule{})
	c.Register(IdentityRoleRule{})
	c.Register(ManagedDatabaseRule{})
	c.Register(ServerlessFunctionRule{})
	return c
}

func (c *catalog) Register(rule Rule) {
	if _, exists := c.rules[rule.ResourceType()]; exists {
		panic(fmt.Sprintf("duplicate rule for resource type: %q", rule.ResourceType()))
	}
	c.rules[rule.ResourceType()] = rule
}

func (c *catalog) Lookup(rt domain.ResourceType) (Rule, bool) {
	rule, ok := c.rules[rt]
	return rule, ok
}

func (c *catalog) Evaluate(resource domain.Resource, now time.Time) Evaluation {
	rule, ok := c.Lookup(resource.Type)
	if !ok {
		return Evaluation{}
	}
	attrs := resource.Attributes
	if attrs == nil {
		attrs = domain.Attributes{}
	}
	return rule.Evaluate(attrs, now)
}
