package controllers

// ParseBranchOverrides exports parseBranchOverrides for testing.
var ParseBranchOverrides = parseBranchOverrides //nolint:gochecknoglobals // test export

// SyncSchedules exports syncSchedules for testing.
var SyncSchedules = syncSchedules //nolint:gochecknoglobals // test export
