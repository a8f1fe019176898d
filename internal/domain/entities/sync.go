package entities

import "time"

// SyncType selects what a synchronisation copies between repositories.
type SyncType string

const (
	SyncFiles    SyncType = "files"
	SyncBranches SyncType = "branches"
	SyncTags     SyncType = "tags"
)

// SyncConfig describes one synchronisation across repositories.
type SyncConfig struct {
	Type            SyncType
	Source          string
	Targets         []string
	Files           []string
	Branches        []string
	Tags            []string
	SourceRef       string
	CommitMessage   string
	ContinueOnError bool
}

// Validate checks the config before any remote call is made.
func (c SyncConfig) Validate() error {
	switch c.Type {
	case SyncFiles:
		if c.Source == "" {
			return NewValidationError("file sync requires a source repository")
		}
		if len(c.Files) == 0 {
			return NewValidationError("file sync requires at least one file")
		}
	case SyncBranches:
		if len(c.Branches) == 0 {
			return NewValidationError("branch sync requires at least one branch")
		}
	case SyncTags:
		if c.Source == "" {
			return NewValidationError("tag sync requires a source repository")
		}
	default:
		return NewValidationError("unknown sync type %q", c.Type)
	}
	return nil
}

// SyncSchedule is one periodic synchronisation owned by a repository.
type SyncSchedule struct {
	Repository string
	Interval   time.Duration
	Config     SyncConfig
}
