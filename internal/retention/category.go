package retention

import "fmt"

// Category is a class of stored objects sharing one retention policy.
type Category string

const (
	ChatProduction   Category = "chat-production"
	ChatPreview      Category = "chat-preview"
	ChatDevelopment  Category = "chat-development"
	FitAssessment    Category = "fit-assessment"
	ResumeGeneration Category = "resume-generation"
	AuditProduction  Category = "audit-production"
	AuditPreview     Category = "audit-preview"
	AuditDevelopment Category = "audit-development"
	EmptyPlaceholder Category = "artifact-empty-placeholder"
	OrphanSession    Category = "artifact-orphan-session"
)

// Categories lists every category in report order.
var Categories = []Category{
	ChatProduction,
	ChatPreview,
	ChatDevelopment,
	FitAssessment,
	ResumeGeneration,
	AuditProduction,
	AuditPreview,
	AuditDevelopment,
	EmptyPlaceholder,
	OrphanSession,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) String() string { return string(c) }
