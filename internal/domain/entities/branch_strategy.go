package entities

import (
	"fmt"
	"strings"
	"unicode"
)

// BranchType is the kind of branch an issue resolves to.
type BranchType string

const (
	BranchFeature BranchType = "feature"
	BranchBugfix  BranchType = "bugfix"
	BranchHotfix  BranchType = "hotfix"
	BranchRelease BranchType = "release"
)

const (
	branchKeyPrefix = "DEVFLOW-"
	maxSlugLength   = 50
)

// protection rule identifiers understood by the gateway
const (
	RuleRequireReview       = "require-review"
	RuleRequireStatusChecks = "require-status-checks"
	RuleEnforceAdmins       = "enforce-admins"
	RuleRestrictForcePush   = "restrict-force-push"
)

// BranchPolicy is the fixed configuration applied to every branch of one type.
type BranchPolicy struct {
	Prefix          string   `yaml:"prefix"`
	BaseRef         string   `yaml:"base"`
	ProtectionRules []string `yaml:"protection"`
	AutoMerge       bool     `yaml:"auto_merge"`
	Priority        string   `yaml:"priority"`
}

// BranchPolicyOverride is the config file form of a BranchPolicy. Empty fields
// keep the default; AutoMerge is a pointer so an override can turn it off.
type BranchPolicyOverride struct {
	Prefix          string   `yaml:"prefix"`
	BaseRef         string   `yaml:"base"`
	ProtectionRules []string `yaml:"protection"`
	AutoMerge       *bool    `yaml:"auto_merge"`
	Priority        string   `yaml:"priority"`
}

// BranchDescriptor is the resolved branch for one issue. It is returned to the
// caller and never retained by the engine.
type BranchDescriptor struct {
	Name    string
	Type    BranchType
	BaseRef string
	Issue   Issue
	Policy  BranchPolicy
}

// BranchPolicies maps every branch type to its policy.
type BranchPolicies map[BranchType]BranchPolicy

// DefaultBranchPolicies returns the built-in policy table.
func DefaultBranchPolicies() BranchPolicies {
	return BranchPolicies{
		BranchFeature: {
			Prefix:          "feature/",
			BaseRef:         "develop",
			ProtectionRules: []string{RuleRequireReview},
		},
		BranchBugfix: {
			Prefix:          "bugfix/",
			BaseRef:         "develop",
			ProtectionRules: []string{RuleRequireReview},
		},
		BranchHotfix: {
			Prefix:          "hotfix/",
			BaseRef:         "main",
			ProtectionRules: []string{RuleRequireReview, RuleRequireStatusChecks},
			Priority:        "critical",
		},
		BranchRelease: {
			Prefix:          "release/",
			BaseRef:         "develop",
			ProtectionRules: []string{RuleRequireReview, RuleRequireStatusChecks, RuleRestrictForcePush},
			Priority:        "high",
		},
	}
}

// Merge returns a copy of the receiver with the set fields of overrides applied.
func (p BranchPolicies) Merge(overrides map[string]BranchPolicyOverride) (BranchPolicies, error) {
	merged := make(BranchPolicies, len(p))
	for k, v := range p {
		merged[k] = v
	}
	for name, override := range overrides {
		branchType := BranchType(name)
		current, ok := merged[branchType]
		if !ok {
			return nil, NewValidationError("unknown branch type %q in branch_policies", name)
		}
		if override.Prefix != "" {
			current.Prefix = override.Prefix
		}
		if override.BaseRef != "" {
			current.BaseRef = override.BaseRef
		}
		if override.ProtectionRules != nil {
			current.ProtectionRules = override.ProtectionRules
		}
		if override.Priority != "" {
			current.Priority = override.Priority
		}
		if override.AutoMerge != nil {
			current.AutoMerge = *override.AutoMerge
		}
		merged[branchType] = current
	}
	return merged, nil
}

// label families, checked in priority order
var labelFamilies = []struct { //nolint:gochecknoglobals // fixed resolution table
	branchType BranchType
	labels     []string
}{
	{BranchHotfix, []string{"critical", "hotfix", "urgent", "security"}},
	{BranchBugfix, []string{"bug", "bugfix", "fix", "defect"}},
	{BranchRelease, []string{"release"}},
	{BranchFeature, []string{"enhancement", "feature"}},
}

// ResolveBranchType maps the issue labels to a branch type. A hotfix-style label
// wins over a bug-style label, which wins over an enhancement-style label.
// Issues without any recognised label resolve to a feature branch.
func ResolveBranchType(issue Issue) BranchType {
	present := make(map[string]bool, len(issue.Labels))
	for _, label := range issue.Labels {
		present[strings.ToLower(strings.TrimSpace(label))] = true
	}
	for _, family := range labelFamilies {
		for _, label := range family.labels {
			if present[label] {
				return family.branchType
			}
		}
	}
	return BranchFeature
}

// ResolveBranchStrategy returns the branch type and policy for an issue.
func (p BranchPolicies) ResolveBranchStrategy(issue Issue) (BranchType, BranchPolicy) {
	branchType := ResolveBranchType(issue)
	return branchType, p[branchType]
}

// Describe resolves the full branch descriptor for an issue.
func (p BranchPolicies) Describe(issue Issue) BranchDescriptor {
	branchType, policy := p.ResolveBranchStrategy(issue)
	return BranchDescriptor{
		Name:    BuildBranchName(policy.Prefix, issue),
		Type:    branchType,
		BaseRef: policy.BaseRef,
		Issue:   issue,
		Policy:  policy,
	}
}

// BuildBranchName returns "{prefix}DEVFLOW-{number}-{slug}".
func BuildBranchName(prefix string, issue Issue) string {
	return fmt.Sprintf("%s%s%d-%s", prefix, branchKeyPrefix, issue.Number, Slugify(issue.Title))
}

// Slugify lower-cases the title, drops punctuation and joins the words with
// hyphens, truncated to 50 runes without a trailing hyphen. Letters of any
// script are kept.
func Slugify(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '/'
	})

	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		var b strings.Builder
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			cleaned = append(cleaned, b.String())
		}
	}

	slug := []rune(strings.Join(cleaned, "-"))
	if len(slug) > maxSlugLength {
		return strings.TrimRight(string(slug[:maxSlugLength]), "-")
	}
	return string(slug)
}

// ValidateProtectionRules rejects unknown protection rule identifiers.
func ValidateProtectionRules(rules []string) error {
	for _, rule := range rules {
		switch rule {
		case RuleRequireReview, RuleRequireStatusChecks, RuleEnforceAdmins, RuleRestrictForcePush:
		default:
			return NewValidationError("unknown protection rule %q", rule)
		}
	}
	return nil
}

// BranchRef returns the fully qualified ref of a branch.
func BranchRef(name string) string {
	return "refs/heads/" + strings.TrimPrefix(name, "refs/heads/")
}

// TagRef returns the fully qualified ref of a tag.
func TagRef(name string) string {
	return "refs/tags/" + strings.TrimPrefix(name, "refs/tags/")
}
