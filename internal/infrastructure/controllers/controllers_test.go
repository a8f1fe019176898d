//go:build unit

package controllers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/infrastructure/controllers"
)

func TestParseBranchOverrides(t *testing.T) {
	t.Parallel()

	t.Run("should map every repository to its head branch", func(t *testing.T) {
		t.Parallel()

		// given
		values := []string{"acme/api=feature/api-side", "acme/web=feature/web-side"}

		// when
		branches, err := controllers.ParseBranchOverrides(values)

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"acme/api": "feature/api-side",
			"acme/web": "feature/web-side",
		}, branches)
	})

	t.Run("should return nil when no override is given", func(t *testing.T) {
		t.Parallel()

		// when
		branches, err := controllers.ParseBranchOverrides(nil)

		// then
		require.NoError(t, err)
		assert.Nil(t, branches)
	})

	t.Run("should reject an override without a branch", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := controllers.ParseBranchOverrides([]string{"acme/api"})

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("should reject an override with a malformed repository", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := controllers.ParseBranchOverrides([]string{"api=feature/x"})

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrValidation)
	})
}

func TestSyncSchedules(t *testing.T) {
	t.Parallel()

	workspace := &commands.Workspace{
		Registered: []entities.RepositoryDescriptor{
			{Repository: entities.Repository{Owner: "acme", Name: "shared"}},
			{Repository: entities.Repository{Owner: "acme", Name: "api"}},
			{Repository: entities.Repository{Owner: "acme", Name: "web"}},
		},
	}

	t.Run("should schedule every registered repository except the source", func(t *testing.T) {
		t.Parallel()

		// given
		config := entities.SyncConfig{Type: entities.SyncFiles, Source: "acme/shared", Files: []string{"LICENSE"}}

		// when
		schedules := controllers.SyncSchedules(workspace, config, time.Hour)

		// then
		require.Len(t, schedules, 2)
		assert.Equal(t, "acme/api", schedules[0].Repository)
		assert.Equal(t, []string{"acme/api"}, schedules[0].Config.Targets)
		assert.Equal(t, "acme/web", schedules[1].Repository)
		assert.Equal(t, []string{"acme/web"}, schedules[1].Config.Targets)
		assert.Equal(t, time.Hour, schedules[1].Interval)
	})

	t.Run("should only schedule the explicit targets", func(t *testing.T) {
		t.Parallel()

		// given
		config := entities.SyncConfig{
			Type:     entities.SyncBranches,
			Targets:  []string{"acme/web"},
			Branches: []string{"develop"},
		}

		// when
		schedules := controllers.SyncSchedules(workspace, config, time.Minute)

		// then
		require.Len(t, schedules, 1)
		assert.Equal(t, "acme/web", schedules[0].Repository)
		assert.Equal(t, []string{"develop"}, schedules[0].Config.Branches)
	})
}
