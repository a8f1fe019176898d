package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultProviderType      = "github"
	defaultReleaseManifest   = "package.json"
	defaultSyncInterval      = time.Hour
	defaultRequestsPerSecond = 10
	defaultBurst             = 20
)

// Settings is the top-level configuration for devflow.
type Settings struct {
	Provider       ProviderConfig                  `yaml:"provider"`
	Retry          RetryConfig                     `yaml:"retry"`
	RateLimit      RateLimitConfig                 `yaml:"rate_limit"`
	Repositories   []RepositoryConfig              `yaml:"repositories"`
	Coordination   CoordinationConfig              `yaml:"coordination"`
	Conflicts      ConflictsConfig                 `yaml:"conflicts"`
	BranchPolicies map[string]BranchPolicyOverride `yaml:"branch_policies"`
	Release        ReleaseSettings                 `yaml:"release"`
	Sync           SyncSettings                    `yaml:"sync"`
}

// ProviderConfig describes the hosting service the gateway talks to.
type ProviderConfig struct {
	Type    string `yaml:"type"`     // "github"
	Token   string `yaml:"token"`    // Inline, ${ENV_VAR}, or file path
	BaseURL string `yaml:"base_url"` // GitHub Enterprise API URL, empty for github.com
}

// RetryConfig configures the gateway retry policy for transient remote failures.
type RetryConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"multiplier"`
}

// DefaultRetryConfig returns the default retry configuration for remote API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// RateLimitConfig throttles outgoing gateway calls.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// RepositoryConfig declares one repository of the workspace.
type RepositoryConfig struct {
	Name         string   `yaml:"name"` // owner/name
	Role         string   `yaml:"role"`
	Dependencies []string `yaml:"dependencies"`
}

// CoordinationConfig holds the defaults of coordinated operations.
type CoordinationConfig struct {
	ConflictPrevention *bool `yaml:"conflict_prevention"`
	ContinueOnError    bool  `yaml:"continue_on_error"`
}

// ConflictPreventionEnabled defaults to true when unset.
func (c CoordinationConfig) ConflictPreventionEnabled() bool {
	return c.ConflictPrevention == nil || *c.ConflictPrevention
}

// ConflictsConfig overrides the critical path patterns.
type ConflictsConfig struct {
	CriticalPatterns []string `yaml:"critical_patterns"`
}

// ReleaseSettings holds the defaults of the release orchestrator.
type ReleaseSettings struct {
	BaseBranch string                 `yaml:"base_branch"`
	Manifest   string                 `yaml:"manifest"`
	Rollback   *ReleaseRollbackPolicy `yaml:"rollback"`
}

// RollbackPolicy returns the configured policy or the default one.
func (r ReleaseSettings) RollbackPolicy() ReleaseRollbackPolicy {
	if r.Rollback == nil {
		return DefaultReleaseRollbackPolicy()
	}
	return *r.Rollback
}

// SyncSettings holds the auto-sync defaults.
type SyncSettings struct {
	Interval time.Duration `yaml:"interval"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() *Settings {
	settings := &Settings{}
	settings.applyDefaults()
	return settings
}

// NewSettings reads and parses a configuration file, expanding environment
// variables and resolving the token file path.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return ParseSettings(data)
}

// ParseSettings parses raw YAML settings, applies defaults and validates them.
func ParseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %v", ErrValidation, unmarshalErr)
	}

	settings.Provider.Token = resolveToken(settings.Provider.Token)
	settings.applyDefaults()

	if validateErr := validateSettings(&settings); validateErr != nil {
		return nil, validateErr
	}
	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
		"configs",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".devflow.yaml",
		".devflow.yml",
		"devflow.yaml",
		"devflow.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// Policies returns the branch policy table with the configured overrides applied.
func (s *Settings) Policies() (BranchPolicies, error) {
	return DefaultBranchPolicies().Merge(s.BranchPolicies)
}

// CriticalPatterns returns the configured critical path patterns or the defaults.
func (s *Settings) CriticalPatterns() []string {
	if len(s.Conflicts.CriticalPatterns) > 0 {
		return s.Conflicts.CriticalPatterns
	}
	return DefaultCriticalPatterns()
}

// Descriptors converts the declared repositories into descriptors ready for registration.
func (s *Settings) Descriptors() ([]RepositoryDescriptor, error) {
	descriptors := make([]RepositoryDescriptor, 0, len(s.Repositories))
	for i, cfg := range s.Repositories {
		repo, err := ParseRepository(cfg.Name)
		if err != nil {
			return nil, fmt.Errorf("repositories[%d]: %w", i, err)
		}
		role := RepositoryRole(cfg.Role)
		if role == "" {
			role = RoleStandard
		}
		descriptors = append(descriptors, RepositoryDescriptor{
			Repository:   repo,
			Role:         role,
			Dependencies: cfg.Dependencies,
		})
	}
	return descriptors, nil
}

// ResolveProviderToken fills an empty provider token from the environment.
func (s *Settings) ResolveProviderToken(override string) {
	if override != "" {
		s.Provider.Token = override
		return
	}
	if s.Provider.Token != "" {
		return
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		s.Provider.Token = t
		return
	}
	s.Provider.Token = os.Getenv("GH_TOKEN")
}

func (s *Settings) applyDefaults() {
	if s.Provider.Type == "" {
		s.Provider.Type = defaultProviderType
	}
	s.Retry.ApplyDefaults()
	if s.RateLimit.RequestsPerSecond == 0 {
		s.RateLimit.RequestsPerSecond = defaultRequestsPerSecond
	}
	if s.RateLimit.Burst == 0 {
		s.RateLimit.Burst = defaultBurst
	}
	if s.Release.BaseBranch == "" {
		s.Release.BaseBranch = DefaultReleaseBaseBranch
	}
	if s.Release.Manifest == "" {
		s.Release.Manifest = defaultReleaseManifest
	}
	if s.Sync.Interval == 0 {
		s.Sync.Interval = defaultSyncInterval
	}
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	// Expand ${ENV_VAR} references
	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// If the resolved value is a path to an existing file, read the token from it
	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validateSettings checks for required and well-formed configuration values.
func validateSettings(settings *Settings) error {
	if settings.Provider.Type != defaultProviderType {
		return NewValidationError("provider.type %q is not supported", settings.Provider.Type)
	}

	seen := make(map[string]bool, len(settings.Repositories))
	for i, repo := range settings.Repositories {
		if repo.Name == "" {
			return NewValidationError("repositories[%d].name is required", i)
		}
		if seen[repo.Name] {
			return NewValidationError("repositories[%d].name %q is declared twice", i, repo.Name)
		}
		seen[repo.Name] = true
	}

	if _, err := settings.Descriptors(); err != nil {
		return err
	}
	if _, err := settings.Policies(); err != nil {
		return err
	}
	for name, policy := range settings.BranchPolicies {
		if err := ValidateProtectionRules(policy.ProtectionRules); err != nil {
			return fmt.Errorf("branch_policies.%s: %w", name, err)
		}
	}
	if _, err := NewCriticalPathMatcher(settings.CriticalPatterns()); err != nil {
		return err
	}
	if settings.Retry.MaxRetries < 0 {
		return NewValidationError("retry.max_retries must not be negative")
	}
	return nil
}
