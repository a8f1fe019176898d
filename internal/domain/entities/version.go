package entities

import (
	"sort"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
	"golang.org/x/mod/semver"
)

// bump kinds accepted by NextVersion
const (
	BumpMajor = "major"
	BumpMinor = "minor"
	BumpPatch = "patch"
)

// SortTagsDescending sorts tag names by semantic version, newest first.
// Names that are not valid versions sort after the valid ones.
func SortTagsDescending(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		v1 := normalizeVersion(tags[i])
		v2 := normalizeVersion(tags[j])
		valid1, valid2 := semver.IsValid(v1), semver.IsValid(v2)
		if valid1 && valid2 {
			return semver.Compare(v1, v2) > 0
		}
		if valid1 != valid2 {
			return valid1
		}
		return tags[i] > tags[j]
	})
}

// LatestVersionTag returns the highest semantic version tag, without a "v"
// prefix, or "" when none of the tags is a version.
func LatestVersionTag(tags []Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		if semver.IsValid(normalizeVersion(tag.Name)) {
			names = append(names, tag.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	SortTagsDescending(names)
	return strings.TrimPrefix(names[0], "v")
}

// IsNewerVersion reports whether candidate is strictly greater than current.
// An empty current version is always older.
func IsNewerVersion(candidate, current string) bool {
	if current == "" {
		return true
	}
	return semver.Compare(normalizeVersion(candidate), normalizeVersion(current)) > 0
}

// ValidateVersion rejects versions that are not semantic versions.
func ValidateVersion(version string) error {
	if !semver.IsValid(normalizeVersion(version)) {
		return NewValidationError("version %q is not a semantic version", version)
	}
	return nil
}

// NextVersion computes the version following current for the given bump kind.
// An empty current version starts from 0.0.0.
func NextVersion(current, bump string) (string, error) {
	if current == "" {
		current = "0.0.0"
	}
	v, err := mmsemver.NewVersion(current)
	if err != nil {
		return "", NewValidationError("current version %q is not a semantic version: %v", current, err)
	}

	var next mmsemver.Version
	switch bump {
	case BumpMajor:
		next = v.IncMajor()
	case BumpMinor:
		next = v.IncMinor()
	case BumpPatch:
		next = v.IncPatch()
	default:
		return "", NewValidationError("unknown version bump %q (expected major, minor or patch)", bump)
	}
	return next.String(), nil
}

// normalizeVersion ensures version has 'v' prefix for semver compatibility
func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
