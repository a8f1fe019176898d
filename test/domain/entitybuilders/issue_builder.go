//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"fmt"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// IssueBuilder helps create test issues with a fluent interface.
type IssueBuilder struct {
	*testkit.BaseBuilder
	number int
	title  string
	labels []string
}

// NewIssueBuilder creates a new issue builder with sensible defaults.
func NewIssueBuilder() *IssueBuilder {
	return &IssueBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		number:      42,
		title:       "Add new feature",
		labels:      []string{"enhancement"},
	}
}

// WithNumber sets the issue number.
func (b *IssueBuilder) WithNumber(number int) *IssueBuilder {
	b.number = number
	return b
}

// WithTitle sets the issue title.
func (b *IssueBuilder) WithTitle(title string) *IssueBuilder {
	b.title = title
	return b
}

// WithLabels replaces the issue labels.
func (b *IssueBuilder) WithLabels(labels ...string) *IssueBuilder {
	b.labels = append([]string(nil), labels...)
	return b
}

// Build creates the issue (satisfies testkit.Builder interface).
func (b *IssueBuilder) Build() interface{} {
	return b.BuildIssue()
}

// BuildIssue creates the issue with a concrete return type.
func (b *IssueBuilder) BuildIssue() entities.Issue {
	return entities.Issue{
		Number: b.number,
		Title:  b.title,
		Labels: append([]string(nil), b.labels...),
		URL:    fmt.Sprintf("https://example.com/issues/%d", b.number),
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *IssueBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.number = 42
	b.title = "Add new feature"
	b.labels = []string{"enhancement"}
	return b
}

// Clone creates a deep copy of the IssueBuilder.
func (b *IssueBuilder) Clone() testkit.Builder {
	return &IssueBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		number:      b.number,
		title:       b.title,
		labels:      append([]string(nil), b.labels...),
	}
}
