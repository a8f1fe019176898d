package entities

import (
	"path"
	"strings"
)

// ConflictClassification tags a changed file in a conflict report.
type ConflictClassification string

const (
	ClassificationCriticalPath ConflictClassification = "critical-path"
	ClassificationOrdinary     ConflictClassification = "ordinary"
)

// ConflictingFile is one changed path and its risk classification.
type ConflictingFile struct {
	Path           string
	Status         string
	ChangeCount    int
	Classification ConflictClassification
}

// ConflictReport estimates the merge risk between two refs. It inspects path
// overlap with the critical patterns, not line-level hunks, so it can under- or
// over-report real merge conflicts.
type ConflictReport struct {
	Repository   Repository
	SourceBranch string
	TargetBranch string
	HasConflicts bool
	Files        []ConflictingFile
	AheadBy      int
	BehindBy     int
	TotalCommits int
	TotalChanges int
}

// CriticalFiles returns the paths classified as critical-path.
func (r *ConflictReport) CriticalFiles() []string {
	var out []string
	for _, f := range r.Files {
		if f.Classification == ClassificationCriticalPath {
			out = append(out, f.Path)
		}
	}
	return out
}

// DefaultCriticalPatterns returns the built-in critical-path pattern set.
func DefaultCriticalPatterns() []string {
	return []string{
		"package.json",
		"package-lock.json",
		"yarn.lock",
		"pnpm-lock.yaml",
		"go.mod",
		"go.sum",
		"requirements.txt",
		"pyproject.toml",
		"Pipfile.lock",
		"Cargo.toml",
		"Cargo.lock",
		"pom.xml",
		"build.gradle",
		"Makefile",
		"Dockerfile",
		"docker-compose.yml",
		".github/workflows/*",
		".gitlab-ci.yml",
		"tsconfig.json",
		"webpack.config.js",
	}
}

// CriticalPathMatcher decides whether a changed path is high merge-risk.
type CriticalPathMatcher struct {
	patterns []string
}

// NewCriticalPathMatcher validates the patterns and builds a matcher.
func NewCriticalPathMatcher(patterns []string) (*CriticalPathMatcher, error) {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, NewValidationError("invalid critical path pattern %q: %v", p, err)
		}
	}
	return &CriticalPathMatcher{patterns: patterns}, nil
}

// Matches reports whether the file path matches any critical pattern. Patterns
// are tried against the full path and the base name; "dir/*" covers any depth.
func (m *CriticalPathMatcher) Matches(filePath string) bool {
	filePath = strings.TrimPrefix(filePath, "/")
	base := path.Base(filePath)
	for _, pattern := range m.patterns {
		if dir, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(filePath, dir+"/") {
			return true
		}
		if ok, _ := path.Match(pattern, filePath); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

// Classify builds a conflict report from a ref comparison. File volume is
// informational only; a report has conflicts when any critical path changed.
func (m *CriticalPathMatcher) Classify(comparison *Comparison) ConflictReport {
	report := ConflictReport{
		AheadBy:      comparison.AheadBy,
		BehindBy:     comparison.BehindBy,
		TotalCommits: comparison.TotalCommits,
	}
	for _, file := range comparison.Files {
		classification := ClassificationOrdinary
		if m.Matches(file.Path) {
			classification = ClassificationCriticalPath
			report.HasConflicts = true
		}
		report.TotalChanges += file.ChangeCount
		report.Files = append(report.Files, ConflictingFile{
			Path:           file.Path,
			Status:         file.Status,
			ChangeCount:    file.ChangeCount,
			Classification: classification,
		})
	}
	return report
}
