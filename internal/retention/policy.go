package retention

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Retention thresholds in days. Product policy, read once when the table is built.
const (
	ChatProductionMaxAgeDays   = 180
	ChatPreviewMaxAgeDays      = 14
	FitAssessmentMaxAgeDays    = 180
	ResumeGenerationMaxAgeDays = 180
	AuditProductionMaxAgeDays  = 180
	AuditPreviewMaxAgeDays     = 14
)

const day = 24 * time.Hour

// Policy is either an age threshold or immediate eligibility, never both.
type Policy struct {
	MaxAgeDays int
	Immediate  bool
	// UploadedAtFallback lets the store timestamp stand in when the key
	// carries none.
	UploadedAtFallback bool
}

func (p Policy) MaxAge() time.Duration {
	return time.Duration(p.MaxAgeDays) * day
}

func (p Policy) validate() error {
	if p.Immediate && p.MaxAgeDays != 0 {
		return fmt.Errorf("immediate policy cannot set max age")
	}
	if !p.Immediate && p.MaxAgeDays <= 0 {
		return fmt.Errorf("max age must be > 0 days")
	}
	return nil
}

func DefaultPolicies() map[Category]Policy {
	return map[Category]Policy{
		ChatProduction:   {MaxAgeDays: ChatProductionMaxAgeDays},
		ChatPreview:      {MaxAgeDays: ChatPreviewMaxAgeDays},
		ChatDevelopment:  {Immediate: true},
		FitAssessment:    {MaxAgeDays: FitAssessmentMaxAgeDays, UploadedAtFallback: true},
		ResumeGeneration: {MaxAgeDays: ResumeGenerationMaxAgeDays, UploadedAtFallback: true},
		AuditProduction:  {MaxAgeDays: AuditProductionMaxAgeDays},
		AuditPreview:     {MaxAgeDays: AuditPreviewMaxAgeDays},
		AuditDevelopment: {Immediate: true},
		// TODO: confirm with product whether placeholders need a grace period
		// so a marker written moments before a run is not removed mid-upload.
		EmptyPlaceholder: {Immediate: true},
		OrphanSession:    {Immediate: true},
	}
}

// PolicyTable is an immutable category to policy lookup.
type PolicyTable struct {
	policies map[Category]Policy
}

// NewPolicyTable builds the table from the defaults plus per-category max age
// overrides. Immediate categories cannot be overridden.
func NewPolicyTable(maxAgeOverrides map[string]int) (*PolicyTable, error) {
	policies := DefaultPolicies()
	for name, days := range maxAgeOverrides {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		p := policies[c]
		if p.Immediate {
			return nil, fmt.Errorf("category %s is immediate and has no max age", c)
		}
		p.MaxAgeDays = days
		policies[c] = p
	}

	for _, c := range Categories {
		p, ok := policies[c]
		if !ok {
			return nil, fmt.Errorf("category %s has no policy", c)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
	}
	return &PolicyTable{policies: policies}, nil
}

func (t *PolicyTable) Lookup(c Category) (Policy, bool) {
	p, ok := t.policies[c]
	return p, ok
}

// ProtectedPredicate exempts matching keys from deletion unconditionally.
type ProtectedPredicate struct {
	Name  string
	Match func(key string) bool
}

const RootMarker = "_root"

var wellKnownContentPrefixes = []string{"content/", "public/", "site/"}

func DefaultProtected() []ProtectedPredicate {
	return []ProtectedPredicate{
		{
			Name: "root-marker",
			Match: func(key string) bool {
				k := strings.TrimPrefix(key, "/")
				return k == "" || k == RootMarker || strings.HasPrefix(k, RootMarker+"/")
			},
		},
		{
			Name: "well-known-content",
			Match: func(key string) bool {
				for _, p := range wellKnownContentPrefixes {
					if strings.HasPrefix(key, p) {
						return true
					}
				}
				return false
			},
		},
		{
			Name: "keep-marker",
			Match: func(key string) bool {
				return path.Base(key) == ".keep"
			},
		},
	}
}
