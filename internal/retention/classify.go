package retention

import (
	"path"
	"strings"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

// Key namespaces owned by the writers of each data class.
const (
	ChatsNamespace         = "chats/"
	ChatProductionPrefix   = "chats/production/"
	ChatPreviewPrefix      = "chats/preview/"
	ChatDevelopmentPrefix  = "chats/development/"
	FitAssessmentPrefix    = "fit-assessments/"
	ResumeGenerationPrefix = "resume-generations/"
	AuditProductionPrefix  = "audit/production/"
	AuditPreviewPrefix     = "audit/preview/"
	AuditDevelopmentPrefix = "audit/development/"
	StoreRootPrefix        = ""
	SessionFilePrefix      = "chat-"
)

// Rule maps objects to a category. Prefix is the listing prefix that covers
// every object the rule can match.
type Rule struct {
	Category Category
	Prefix   string
	Match    func(obj blob.Object) bool
}

// Classifier assigns each object to at most one category by evaluating its
// rules in order; the first match wins.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Classifier{rules: cp}
}

// DefaultRules returns the rule table in priority order. The structural
// artifact checks run before the namespace rules so a placeholder or a legacy
// session file inside a chat namespace is not aged like a transcript.
func DefaultRules() []Rule {
	return []Rule{
		{Category: EmptyPlaceholder, Prefix: StoreRootPrefix, Match: isEmptyPlaceholder},
		{Category: OrphanSession, Prefix: ChatsNamespace, Match: isOrphanSession},
		{Category: ChatProduction, Prefix: ChatProductionPrefix, Match: hasPrefix(ChatProductionPrefix)},
		{Category: ChatPreview, Prefix: ChatPreviewPrefix, Match: hasPrefix(ChatPreviewPrefix)},
		{Category: ChatDevelopment, Prefix: ChatDevelopmentPrefix, Match: hasPrefix(ChatDevelopmentPrefix)},
		{Category: FitAssessment, Prefix: FitAssessmentPrefix, Match: hasPrefix(FitAssessmentPrefix)},
		{Category: ResumeGeneration, Prefix: ResumeGenerationPrefix, Match: hasPrefix(ResumeGenerationPrefix)},
		{Category: AuditProduction, Prefix: AuditProductionPrefix, Match: hasPrefix(AuditProductionPrefix)},
		{Category: AuditPreview, Prefix: AuditPreviewPrefix, Match: hasPrefix(AuditPreviewPrefix)},
		{Category: AuditDevelopment, Prefix: AuditDevelopmentPrefix, Match: hasPrefix(AuditDevelopmentPrefix)},
	}
}

// Classify returns the category of obj, or false when no rule matches.
// Unclassified objects are never deleted.
func (c *Classifier) Classify(obj blob.Object) (Category, bool) {
	for _, r := range c.rules {
		if r.Match(obj) {
			return r.Category, true
		}
	}
	return "", false
}

// Prefix returns the listing prefix for category.
func (c *Classifier) Prefix(category Category) (string, bool) {
	for _, r := range c.rules {
		if r.Category == category {
			return r.Prefix, true
		}
	}
	return "", false
}

// Categories returns the categories known to this classifier in rule order.
func (c *Classifier) Categories() []Category {
	out := make([]Category, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.Category)
	}
	return out
}

func hasPrefix(prefix string) func(blob.Object) bool {
	return func(obj blob.Object) bool {
		return strings.HasPrefix(obj.Key, prefix)
	}
}

// isEmptyPlaceholder matches zero-byte container markers: "folder/" keys and
// names without an extension.
func isEmptyPlaceholder(obj blob.Object) bool {
	return obj.Size == 0 && !hasFilenameSuffix(obj.Key)
}

// isOrphanSession matches files in the chat session namespace that were not
// written by the current transcript writer.
func isOrphanSession(obj blob.Object) bool {
	if !strings.HasPrefix(obj.Key, ChatsNamespace) || strings.HasSuffix(obj.Key, "/") {
		return false
	}
	base := path.Base(obj.Key)
	return !strings.HasPrefix(base, SessionFilePrefix)
}

func hasFilenameSuffix(key string) bool {
	if key == "" || strings.HasSuffix(key, "/") {
		return false
	}
	base := path.Base(key)
	ext := path.Ext(base)
	return len(ext) > 1 && len(ext) < len(base)
}
