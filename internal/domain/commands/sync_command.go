package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

const (
	operationSyncPrefix      = "sync-"
	defaultSyncCommitMessage = "chore: synchronise %s from %s"
)

// Synchronize is the interface for repository synchronisation.
type Synchronize interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		config entities.SyncConfig,
	) (*entities.CoordinatedOperationReport, error)
}

// SyncCommand copies files, branches or tags from a source repository to the
// targets, one coordinated operation per call.
type SyncCommand struct {
	engine *coordinationEngine
}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand(
	registry repositories.RegistryRepository,
	metrics *entities.Metrics,
	events *entities.EventBus,
) *SyncCommand {
	return &SyncCommand{
		engine: &coordinationEngine{registry: registry, metrics: metrics, events: events},
	}
}

// Execute validates the config and runs the synchronisation over every target.
func (it *SyncCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	config entities.SyncConfig,
) (*entities.CoordinatedOperationReport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	targets := config.Targets
	if len(targets) == 0 {
		for _, d := range it.engine.registry.All() {
			if d.ID() != config.Source {
				targets = append(targets, d.ID())
			}
		}
	}
	if len(targets) == 0 {
		return nil, entities.NewValidationError("sync has no target repositories")
	}

	var step stepFunc
	switch config.Type {
	case entities.SyncFiles:
		files, err := it.readSourceFiles(ctx, gateway, config)
		if err != nil {
			return nil, err
		}
		step = it.fileStep(gateway, config, files)
	case entities.SyncBranches:
		step = it.branchStep(gateway, config)
	case entities.SyncTags:
		tags, err := it.sourceTags(ctx, gateway, config)
		if err != nil {
			return nil, err
		}
		step = it.tagStep(gateway, tags)
	}

	operation := operationSyncPrefix + string(config.Type)
	report, err := it.engine.run(ctx, operation, config.Source, CoordinationOptions{
		Repositories:    targets,
		ContinueOnError: config.ContinueOnError,
	}, nil, step)
	if err != nil {
		return report, err
	}

	it.engine.events.Publish(entities.Event{
		Type:       entities.EventSyncCompleted,
		Repository: config.Source,
		Subject:    string(config.Type),
		Detail:     report.ID,
	})
	return report, nil
}

// readSourceFiles reads every configured file from the source repository.
func (it *SyncCommand) readSourceFiles(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	config entities.SyncConfig,
) ([]entities.FileContent, error) {
	source, err := entities.ParseRepository(config.Source)
	if err != nil {
		return nil, err
	}

	ref := config.SourceRef
	if ref == "" {
		metadata, metaErr := gateway.GetRepositoryMetadata(ctx, source)
		if metaErr != nil {
			return nil, fmt.Errorf("failed to read source repository %s: %w", config.Source, metaErr)
		}
		ref = metadata.DefaultBranch
	}

	files := make([]entities.FileContent, 0, len(config.Files))
	for _, path := range config.Files {
		content, readErr := gateway.GetFileContent(ctx, source, path, ref)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s from %s@%s: %w", path, config.Source, ref, readErr)
		}
		files = append(files, *content)
	}
	return files, nil
}

// sourceTags lists the tags of the source repository.
func (it *SyncCommand) sourceTags(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	config entities.SyncConfig,
) ([]entities.Tag, error) {
	source, err := entities.ParseRepository(config.Source)
	if err != nil {
		return nil, err
	}
	tags, err := gateway.ListTags(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", config.Source, err)
	}
	if len(config.Tags) == 0 {
		return tags, nil
	}

	wanted := make(map[string]bool, len(config.Tags))
	for _, name := range config.Tags {
		wanted[name] = true
	}
	filtered := make([]entities.Tag, 0, len(config.Tags))
	for _, tag := range tags {
		if wanted[tag.Name] {
			filtered = append(filtered, tag)
		}
	}
	return filtered, nil
}

// fileStep creates or updates every source file on the target default branch.
// File writes are not reverted on rollback.
func (it *SyncCommand) fileStep(
	gateway repositories.GatewayRepository,
	config entities.SyncConfig,
	files []entities.FileContent,
) stepFunc {
	return func(
		ctx context.Context, d entities.RepositoryDescriptor,
	) (entities.OperationOutcome, *compensation, error) {
		outcome := entities.OperationOutcome{}
		branch, err := defaultBranch(ctx, gateway, d)
		if err != nil {
			return outcome, nil, fmt.Errorf("failed to resolve default branch: %w", err)
		}
		outcome.Ref = branch

		var written []string
		for _, file := range files {
			existing, getErr := gateway.GetFileContent(ctx, d.Repository, file.Path, branch)
			write := entities.FileWrite{
				Path:    file.Path,
				Content: file.Content,
				Branch:  branch,
				Message: commitMessage(config, file.Path),
			}
			switch {
			case getErr == nil && existing.Content == file.Content:
				continue
			case getErr == nil:
				write.SHA = existing.SHA
			case !errors.Is(getErr, entities.ErrNotFound):
				return outcome, nil, fmt.Errorf("failed to read %s: %w", file.Path, getErr)
			}

			if _, putErr := gateway.PutFileContent(ctx, d.Repository, write); putErr != nil {
				return outcome, nil, fmt.Errorf("failed to write %s: %w", file.Path, putErr)
			}
			written = append(written, file.Path)
		}

		if len(written) == 0 {
			outcome.Status = entities.OutcomeSkipped
			outcome.Reason = "files already up to date"
			return outcome, nil, nil
		}
		outcome.Status = entities.OutcomeCreated
		outcome.Reason = "updated " + strings.Join(written, ", ")
		return outcome, &compensation{
			repository: d.ID(),
			action:     "revert " + strings.Join(written, ", "),
		}, nil
	}
}

// branchStep ensures every configured branch exists, created from the target default branch.
func (it *SyncCommand) branchStep(
	gateway repositories.GatewayRepository,
	config entities.SyncConfig,
) stepFunc {
	return func(
		ctx context.Context, d entities.RepositoryDescriptor,
	) (entities.OperationOutcome, *compensation, error) {
		outcome := entities.OperationOutcome{}
		base, err := defaultBranch(ctx, gateway, d)
		if err != nil {
			return outcome, nil, fmt.Errorf("failed to resolve default branch: %w", err)
		}
		sha, err := gateway.GetRef(ctx, d.Repository, entities.BranchRef(base))
		if err != nil {
			return outcome, nil, fmt.Errorf("failed to read %s: %w", base, err)
		}

		refs := make([]string, 0, len(config.Branches))
		for _, name := range config.Branches {
			refs = append(refs, entities.BranchRef(name))
		}
		return ensureRefs(ctx, gateway, d, refs, sha, "branch")
	}
}

// tagStep ensures every source tag exists in the target, at the target default branch head.
func (it *SyncCommand) tagStep(
	gateway repositories.GatewayRepository,
	tags []entities.Tag,
) stepFunc {
	return func(
		ctx context.Context, d entities.RepositoryDescriptor,
	) (entities.OperationOutcome, *compensation, error) {
		outcome := entities.OperationOutcome{}
		if len(tags) == 0 {
			outcome.Status = entities.OutcomeSkipped
			outcome.Reason = "source has no tags"
			return outcome, nil, nil
		}

		base, err := defaultBranch(ctx, gateway, d)
		if err != nil {
			return outcome, nil, fmt.Errorf("failed to resolve default branch: %w", err)
		}
		sha, err := gateway.GetRef(ctx, d.Repository, entities.BranchRef(base))
		if err != nil {
			return outcome, nil, fmt.Errorf("failed to read %s: %w", base, err)
		}

		refs := make([]string, 0, len(tags))
		for _, tag := range tags {
			refs = append(refs, entities.TagRef(tag.Name))
		}
		return ensureRefs(ctx, gateway, d, refs, sha, "tag")
	}
}

// ensureRefs creates the missing refs at sha. The compensation deletes only
// the refs this call created.
func ensureRefs(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	d entities.RepositoryDescriptor,
	refs []string,
	sha, kind string,
) (entities.OperationOutcome, *compensation, error) {
	outcome := entities.OperationOutcome{}

	var created []string
	for _, ref := range refs {
		_, err := gateway.CreateRef(ctx, d.Repository, ref, sha)
		if errors.Is(err, entities.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			undoCreated(ctx, gateway, d.Repository, created)
			return outcome, nil, fmt.Errorf("failed to create %s %s: %w", kind, ref, err)
		}
		created = append(created, ref)
	}

	if len(created) == 0 {
		outcome.Status = entities.OutcomeSkipped
		outcome.Reason = fmt.Sprintf("every %s already exists", kind)
		return outcome, nil, nil
	}

	outcome.Status = entities.OutcomeCreated
	outcome.Reason = fmt.Sprintf("created %d %s(s)", len(created), kind)
	outcome.Ref = strings.Join(created, ",")
	repo := d.Repository
	return outcome, &compensation{
		repository: d.ID(),
		action:     fmt.Sprintf("delete %s(s) %s", kind, strings.Join(created, ", ")),
		undo: func(ctx context.Context) error {
			var errs []error
			for _, ref := range created {
				if err := gateway.DeleteRef(ctx, repo, ref); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}, nil
}

// undoCreated removes refs created before a failure inside the same repository.
func undoCreated(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	repo entities.Repository,
	refs []string,
) {
	for _, ref := range refs {
		if err := gateway.DeleteRef(context.WithoutCancel(ctx), repo, ref); err != nil {
			logger.Warnf("[sync] Could not remove %s from %s after a failed step: %v", ref, repo, err)
		}
	}
}

func commitMessage(config entities.SyncConfig, path string) string {
	if config.CommitMessage != "" {
		return config.CommitMessage
	}
	return fmt.Sprintf(defaultSyncCommitMessage, path, config.Source)
}
