package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

const (
	operationRelease     = "release"
	releaseBranchPrefix  = "release/"
	changelogPath        = "CHANGELOG.md"
	changelogDateLayout  = "2006-01-02"
	versionCommitMessage = "chore(release): bump version to %s"
	changelogMessage     = "chore(release): update changelog for %s"
)

// OrchestrateRelease is the interface for the multi-repository release orchestrator.
type OrchestrateRelease interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		config entities.ReleaseConfig,
	) (*entities.ReleaseTask, error)
	Tasks() []*entities.ReleaseTask
}

// ReleaseCommand drives a release through its phases in every repository:
// pre-release checks, release branch, version update, release publication and
// post-release reminders.
type ReleaseCommand struct {
	engine *coordinationEngine

	mu    sync.RWMutex
	tasks []*entities.ReleaseTask
}

// NewReleaseCommand creates a new ReleaseCommand.
func NewReleaseCommand(
	registry repositories.RegistryRepository,
	metrics *entities.Metrics,
	events *entities.EventBus,
) *ReleaseCommand {
	return &ReleaseCommand{
		engine: &coordinationEngine{registry: registry, metrics: metrics, events: events},
	}
}

// Tasks returns every release task started by this command, oldest first.
func (it *ReleaseCommand) Tasks() []*entities.ReleaseTask {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return append([]*entities.ReleaseTask(nil), it.tasks...)
}

// Execute runs the release. On failure the created artifacts are compensated
// according to config.Rollback and the failed task is returned with the error.
func (it *ReleaseCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	config entities.ReleaseConfig,
) (*entities.ReleaseTask, error) {
	if config.BaseBranch == "" {
		config.BaseBranch = entities.DefaultReleaseBaseBranch
	}

	targets, err := it.resolveTargets(config.Repositories)
	if err != nil {
		return nil, err
	}

	version, err := it.resolveVersion(ctx, gateway, config, targets[0])
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(targets))
	for _, d := range targets {
		ids = append(ids, d.ID())
	}
	task := entities.NewReleaseTask(uuid.NewString(), version, ids)
	it.mu.Lock()
	it.tasks = append(it.tasks, task)
	it.mu.Unlock()

	logger.Infof("[release] Starting release %s (%s) across %d repositories", task.Tag, task.ID, len(targets))

	run := &releaseRun{
		gateway: gateway,
		config:  config,
		task:    task,
		targets: targets,
		metrics: it.engine.metrics,
	}

	phases := []struct {
		phase entities.ReleasePhase
		fn    func(context.Context) error
	}{
		{entities.PhasePreChecks, run.preChecks},
		{entities.PhaseBranchCreation, run.createBranches},
		{entities.PhaseVersionUpdate, run.updateVersions},
		{entities.PhaseReleaseCreate, run.createReleases},
		{entities.PhasePostRelease, run.postRelease},
	}
	for _, p := range phases {
		task.Enter(p.phase)
		logger.Infof("[release] %s: entering %s", task.Tag, p.phase)

		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = p.fn(ctx)
		}
		if err != nil {
			return task, it.fail(ctx, run, p.phase, err)
		}
	}

	task.Complete()
	it.engine.metrics.IncCrossRepoOperations(operationRelease)
	it.engine.events.Publish(entities.Event{
		Type:    entities.EventReleaseCompleted,
		Subject: task.Tag,
		Detail:  task.ID,
	})
	logger.Infof("[release] Release %s completed", task.Tag)
	return task, nil
}

// resolveTargets returns the descriptors of the requested repositories. A
// repository that is not registered is released as a standard repository.
func (it *ReleaseCommand) resolveTargets(requested []string) ([]entities.RepositoryDescriptor, error) {
	if len(requested) == 0 {
		for _, d := range it.engine.registry.All() {
			requested = append(requested, d.ID())
		}
	}
	requested = dedupe(requested)
	if len(requested) == 0 {
		return nil, entities.NewValidationError("release requires at least one repository")
	}

	targets := make([]entities.RepositoryDescriptor, 0, len(requested))
	for _, id := range requested {
		if descriptor, ok := it.engine.registry.Get(id); ok {
			targets = append(targets, descriptor)
			continue
		}
		repo, err := entities.ParseRepository(id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, entities.RepositoryDescriptor{Repository: repo, Role: entities.RoleStandard})
	}
	return entities.NewDependencyGraph(it.engine.registry.All()).Order(targets), nil
}

// resolveVersion returns the explicit version or bumps the latest tag of the first target.
func (it *ReleaseCommand) resolveVersion(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	config entities.ReleaseConfig,
	first entities.RepositoryDescriptor,
) (string, error) {
	if config.Version != "" {
		if err := entities.ValidateVersion(config.Version); err != nil {
			return "", err
		}
		return strings.TrimPrefix(config.Version, "v"), nil
	}
	if config.Bump == "" {
		return "", entities.NewValidationError("release requires a version or a bump")
	}

	tags, err := gateway.ListTags(ctx, first.Repository)
	if err != nil {
		return "", fmt.Errorf("failed to list tags of %s: %w", first.ID(), err)
	}
	latest := entities.LatestVersionTag(tags)
	next, err := entities.NextVersion(latest, config.Bump)
	if err != nil {
		return "", err
	}
	logger.Infof("[release] Bumped %s version %q to %s", config.Bump, latest, next)
	return next, nil
}

// fail compensates the created artifacts and marks the task as failed.
func (it *ReleaseCommand) fail(ctx context.Context, run *releaseRun, phase entities.ReleasePhase, cause error) error {
	err := fmt.Errorf("release %s failed during %s: %w", run.task.Tag, phase, cause)
	logger.Errorf("[release] %v", err)

	if len(run.compensations) > 0 {
		run.task.Rollback = it.engine.rollback(ctx, run.compensations)
	}
	run.task.Fail(err)
	it.engine.events.Publish(entities.Event{
		Type:    entities.EventReleaseFailed,
		Subject: run.task.Tag,
		Detail:  err.Error(),
	})
	return err
}

// releaseRun holds the state of one release execution.
type releaseRun struct {
	gateway repositories.GatewayRepository
	config  entities.ReleaseConfig
	task    *entities.ReleaseTask
	targets []entities.RepositoryDescriptor
	metrics *entities.Metrics

	compensations []compensation
}

func (r *releaseRun) branchName() string {
	return releaseBranchPrefix + r.task.Version
}

func (r *releaseRun) entry(d entities.RepositoryDescriptor) *entities.RepositoryRelease {
	return r.task.Repositories[d.ID()]
}

// preChecks records advisory findings; it never stops the release.
func (r *releaseRun) preChecks(ctx context.Context) error {
	for _, d := range r.targets {
		if _, err := r.gateway.GetRepositoryMetadata(ctx, d.Repository); err != nil {
			r.warn("%s is not reachable: %v", d.ID(), err)
			continue
		}

		tags, err := r.gateway.ListTags(ctx, d.Repository)
		if err != nil {
			r.warn("tags of %s could not be listed: %v", d.ID(), err)
			continue
		}
		for _, tag := range tags {
			if tag.Name == r.task.Tag {
				r.warn("tag %s already exists in %s", r.task.Tag, d.ID())
				break
			}
		}

		latest := entities.LatestVersionTag(tags)
		r.entry(d).PreviousVersion = latest
		if !entities.IsNewerVersion(r.task.Version, latest) {
			r.warn("version %s is not newer than %s in %s", r.task.Version, latest, d.ID())
		}
	}
	return nil
}

// createBranches creates release/{version} in every repository from the release base.
func (r *releaseRun) createBranches(ctx context.Context) error {
	name := r.branchName()
	ref := entities.BranchRef(name)

	for _, d := range r.targets {
		entry := r.entry(d)
		entry.Branch = name

		base := r.config.BaseBranch
		sha, err := r.gateway.GetRef(ctx, d.Repository, entities.BranchRef(base))
		if err != nil {
			entry.BranchStatus = entities.OutcomeFailed
			return fmt.Errorf("%s: failed to read base branch %s: %w", d.ID(), base, err)
		}

		_, err = r.gateway.CreateRef(ctx, d.Repository, ref, sha)
		switch {
		case errors.Is(err, entities.ErrAlreadyExists):
			entry.BranchStatus = entities.OutcomeSkipped
			logger.Infof("[release] %s already has %s", d.ID(), name)
			continue
		case err != nil:
			entry.BranchStatus = entities.OutcomeFailed
			return fmt.Errorf("%s: failed to create %s: %w", d.ID(), name, err)
		}

		entry.BranchStatus = entities.OutcomeCreated
		r.metrics.IncBranchesCreated()

		c := compensation{repository: d.ID(), action: "delete branch " + name}
		if r.config.Rollback.DeleteBranches {
			repo := d.Repository
			c.undo = func(ctx context.Context) error {
				return r.gateway.DeleteRef(ctx, repo, ref)
			}
		}
		r.compensations = append(r.compensations, c)
	}
	return nil
}

// updateVersions rewrites the manifest and promotes the changelog on every release branch.
func (r *releaseRun) updateVersions(ctx context.Context) error {
	branch := r.branchName()
	for _, d := range r.targets {
		entry := r.entry(d)

		status, commit, err := r.bumpManifest(ctx, d, branch)
		if err != nil {
			entry.VersionStatus = entities.OutcomeFailed
			return fmt.Errorf("%s: %w", d.ID(), err)
		}
		entry.VersionStatus = status
		entry.VersionCommit = commit

		if err = r.promoteChangelog(ctx, d, branch); err != nil {
			return fmt.Errorf("%s: %w", d.ID(), err)
		}
	}
	return nil
}

func (r *releaseRun) bumpManifest(
	ctx context.Context,
	d entities.RepositoryDescriptor,
	branch string,
) (entities.OutcomeStatus, string, error) {
	if r.config.Manifest == "" {
		return entities.OutcomeSkipped, "", nil
	}

	file, err := r.gateway.GetFileContent(ctx, d.Repository, r.config.Manifest, branch)
	if errors.Is(err, entities.ErrNotFound) {
		logger.Infof("[release] %s has no %s, skipping version update", d.ID(), r.config.Manifest)
		return entities.OutcomeSkipped, "", nil
	}
	if err != nil {
		return entities.OutcomeFailed, "", fmt.Errorf("failed to read %s: %w", r.config.Manifest, err)
	}

	rewritten, err := entities.RewriteManifestVersion(r.config.Manifest, file.Content, r.task.Version)
	if err != nil {
		return entities.OutcomeFailed, "", err
	}
	if rewritten == file.Content {
		return entities.OutcomeSkipped, "", nil
	}

	commit, err := r.gateway.PutFileContent(ctx, d.Repository, entities.FileWrite{
		Path:    r.config.Manifest,
		Content: rewritten,
		Message: fmt.Sprintf(versionCommitMessage, r.task.Version),
		SHA:     file.SHA,
		Branch:  branch,
	})
	if err != nil {
		return entities.OutcomeFailed, "", fmt.Errorf("failed to write %s: %w", r.config.Manifest, err)
	}
	return entities.OutcomeCreated, commit, nil
}

func (r *releaseRun) promoteChangelog(ctx context.Context, d entities.RepositoryDescriptor, branch string) error {
	file, err := r.gateway.GetFileContent(ctx, d.Repository, changelogPath, branch)
	if errors.Is(err, entities.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", changelogPath, err)
	}

	promoted, ok := entities.PromoteUnreleased(file.Content, r.task.Version, time.Now().Format(changelogDateLayout))
	if !ok {
		return nil
	}
	if _, err = r.gateway.PutFileContent(ctx, d.Repository, entities.FileWrite{
		Path:    changelogPath,
		Content: promoted,
		Message: fmt.Sprintf(changelogMessage, r.task.Version),
		SHA:     file.SHA,
		Branch:  branch,
	}); err != nil {
		return fmt.Errorf("failed to write %s: %w", changelogPath, err)
	}
	return nil
}

// createReleases publishes the v{version} release from every release branch.
func (r *releaseRun) createReleases(ctx context.Context) error {
	for _, d := range r.targets {
		entry := r.entry(d)

		release, err := r.gateway.CreateRelease(ctx, d.Repository, entities.ReleaseInput{
			TagName:    r.task.Tag,
			TargetRef:  r.branchName(),
			Name:       r.task.Tag,
			Body:       r.config.Notes,
			Draft:      r.config.Draft,
			Prerelease: r.config.Prerelease,
		})
		if errors.Is(err, entities.ErrAlreadyExists) {
			entry.ReleaseStatus = entities.OutcomeSkipped
			continue
		}
		if err != nil {
			entry.ReleaseStatus = entities.OutcomeFailed
			return fmt.Errorf("%s: failed to publish %s: %w", d.ID(), r.task.Tag, err)
		}

		entry.ReleaseStatus = entities.OutcomeCreated
		entry.ReleaseID = release.ID
		entry.ReleaseURL = release.URL
		r.metrics.IncReleasesCreated()

		c := compensation{repository: d.ID(), action: "delete release " + r.task.Tag}
		if r.config.Rollback.DeleteReleases {
			repo, id := d.Repository, release.ID
			c.undo = func(ctx context.Context) error {
				return r.gateway.DeleteRelease(ctx, repo, id)
			}
		}
		r.compensations = append(r.compensations, c)
	}
	return nil
}

// postRelease records back-merge reminders; nothing here fails the release.
func (r *releaseRun) postRelease(ctx context.Context) error {
	branch := r.branchName()
	for _, d := range r.targets {
		var into []string
		if defaultRef, err := defaultBranch(ctx, r.gateway, d); err == nil {
			into = append(into, defaultRef)
		}
		if len(into) == 0 || into[0] != r.config.BaseBranch {
			into = append(into, r.config.BaseBranch)
		}
		for _, target := range into {
			reminder := fmt.Sprintf("merge %s back into %s in %s", branch, target, d.ID())
			r.task.Remind(reminder)
			logger.Infof("[release] Reminder: %s", reminder)
		}
	}
	return nil
}

func (r *releaseRun) warn(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	r.task.Warn(message)
	logger.Warnf("[release] %s", message)
}
