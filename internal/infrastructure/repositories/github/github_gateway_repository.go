package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v66/github"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

const (
	gatewayName         = "github"
	perPage             = 100
	requiredReviewCount = 1
)

// GitHubGatewayRepository implements repositories.GatewayRepository and
// repositories.IssueRepository for GitHub.
type GitHubGatewayRepository struct {
	client  *gh.Client
	limiter *rate.Limiter
	retry   entities.RetryConfig
}

var (
	_ repositories.GatewayRepository = (*GitHubGatewayRepository)(nil)
	_ repositories.IssueRepository   = (*GitHubGatewayRepository)(nil)
)

// NewGatewayRepository creates a GitHub gateway from the settings.
func NewGatewayRepository(settings *entities.Settings) *GitHubGatewayRepository {
	var httpClient *http.Client
	if token := settings.Provider.Token; token != "" {
		httpClient = oauth2.NewClient(
			context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		)
	}

	client := gh.NewClient(httpClient)
	if baseURL := settings.Provider.BaseURL; baseURL != "" {
		enterpriseClient, err := client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			logger.Warnf("[github] Ignoring invalid base_url %q: %v", baseURL, err)
		} else {
			client = enterpriseClient
		}
	}

	limiter := rate.NewLimiter(rate.Limit(settings.RateLimit.RequestsPerSecond), settings.RateLimit.Burst)
	return NewGatewayRepositoryWithClient(client, settings.Retry, limiter)
}

// NewGatewayRepositoryWithClient creates a gateway around a preconfigured client.
// A nil limiter disables throttling.
func NewGatewayRepositoryWithClient(
	client *gh.Client,
	retry entities.RetryConfig,
	limiter *rate.Limiter,
) *GitHubGatewayRepository {
	return &GitHubGatewayRepository{
		client:  client,
		limiter: limiter,
		retry:   retry,
	}
}

func (g *GitHubGatewayRepository) Name() string { return gatewayName }

// call runs one API operation through the retry layer and classifies its failure.
func (g *GitHubGatewayRepository) call(
	ctx context.Context,
	action string,
	operation func() (*gh.Response, error),
) error {
	resp, err := retryOperation(ctx, g.retry, g.limiter, operation)
	if err != nil {
		return classifyError(action, resp, err)
	}
	return nil
}

func (g *GitHubGatewayRepository) GetRef(
	ctx context.Context,
	repo entities.Repository,
	ref string,
) (string, error) {
	var sha string
	err := g.call(ctx, fmt.Sprintf("get ref %s in %s", ref, repo), func() (*gh.Response, error) {
		reference, resp, err := g.client.Git.GetRef(ctx, repo.Owner, repo.Name, ref)
		if err == nil {
			sha = reference.GetObject().GetSHA()
		}
		return resp, err
	})
	return sha, err
}

func (g *GitHubGatewayRepository) CreateRef(
	ctx context.Context,
	repo entities.Repository,
	ref, sha string,
) (string, error) {
	var created string
	err := g.call(ctx, fmt.Sprintf("create ref %s in %s", ref, repo), func() (*gh.Response, error) {
		reference, resp, err := g.client.Git.CreateRef(ctx, repo.Owner, repo.Name, &gh.Reference{
			Ref:    gh.String(ref),
			Object: &gh.GitObject{SHA: gh.String(sha)},
		})
		if err == nil {
			created = reference.GetObject().GetSHA()
		}
		return resp, err
	})
	return created, err
}

func (g *GitHubGatewayRepository) UpdateRef(
	ctx context.Context,
	repo entities.Repository,
	ref, sha string,
	force bool,
) (string, error) {
	var updated string
	err := g.call(ctx, fmt.Sprintf("update ref %s in %s", ref, repo), func() (*gh.Response, error) {
		reference, resp, err := g.client.Git.UpdateRef(ctx, repo.Owner, repo.Name, &gh.Reference{
			Ref:    gh.String(ref),
			Object: &gh.GitObject{SHA: gh.String(sha)},
		}, force)
		if err == nil {
			updated = reference.GetObject().GetSHA()
		}
		return resp, err
	})
	return updated, err
}

func (g *GitHubGatewayRepository) DeleteRef(
	ctx context.Context,
	repo entities.Repository,
	ref string,
) error {
	return g.call(ctx, fmt.Sprintf("delete ref %s in %s", ref, repo), func() (*gh.Response, error) {
		return g.client.Git.DeleteRef(ctx, repo.Owner, repo.Name, ref)
	})
}

func (g *GitHubGatewayRepository) CompareRefs(
	ctx context.Context,
	repo entities.Repository,
	base, head string,
) (*entities.Comparison, error) {
	var comparison *entities.Comparison
	err := g.call(ctx, fmt.Sprintf("compare %s...%s in %s", base, head, repo), func() (*gh.Response, error) {
		result, resp, err := g.client.Repositories.CompareCommits(
			ctx, repo.Owner, repo.Name, base, head, &gh.ListOptions{PerPage: perPage},
		)
		if err != nil {
			return resp, err
		}
		comparison = &entities.Comparison{
			AheadBy:      result.GetAheadBy(),
			BehindBy:     result.GetBehindBy(),
			TotalCommits: result.GetTotalCommits(),
		}
		for _, file := range result.Files {
			comparison.Files = append(comparison.Files, entities.ChangedFile{
				Path:        file.GetFilename(),
				Status:      file.GetStatus(),
				ChangeCount: file.GetChanges(),
			})
		}
		return resp, nil
	})
	return comparison, err
}

func (g *GitHubGatewayRepository) CreatePullRequest(
	ctx context.Context,
	repo entities.Repository,
	input entities.PullRequestInput,
) (*entities.PullRequest, error) {
	var created *entities.PullRequest
	action := fmt.Sprintf("create pull request %s -> %s in %s", input.Head, input.Base, repo)
	err := g.call(ctx, action, func() (*gh.Response, error) {
		pr, resp, err := g.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &gh.NewPullRequest{
			Title:               gh.String(input.Title),
			Head:                gh.String(input.Head),
			Base:                gh.String(input.Base),
			Body:                gh.String(input.Body),
			Draft:               gh.Bool(input.Draft),
			MaintainerCanModify: gh.Bool(true),
		})
		if err == nil {
			created = &entities.PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}
		}
		return resp, err
	})
	return created, err
}

func (g *GitHubGatewayRepository) ClosePullRequest(
	ctx context.Context,
	repo entities.Repository,
	number int,
) error {
	return g.call(ctx, fmt.Sprintf("close pull request #%d in %s", number, repo), func() (*gh.Response, error) {
		_, resp, err := g.client.PullRequests.Edit(ctx, repo.Owner, repo.Name, number, &gh.PullRequest{
			State: gh.String("closed"),
		})
		return resp, err
	})
}

func (g *GitHubGatewayRepository) AddLabels(
	ctx context.Context,
	repo entities.Repository,
	number int,
	labels []string,
) error {
	if len(labels) == 0 {
		return nil
	}
	return g.call(ctx, fmt.Sprintf("add labels to #%d in %s", number, repo), func() (*gh.Response, error) {
		_, resp, err := g.client.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, number, labels)
		return resp, err
	})
}

func (g *GitHubGatewayRepository) CreateComment(
	ctx context.Context,
	repo entities.Repository,
	number int,
	body string,
) error {
	return g.call(ctx, fmt.Sprintf("comment on #%d in %s", number, repo), func() (*gh.Response, error) {
		_, resp, err := g.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &gh.IssueComment{
			Body: gh.String(body),
		})
		return resp, err
	})
}

func (g *GitHubGatewayRepository) GetFileContent(
	ctx context.Context,
	repo entities.Repository,
	path, ref string,
) (*entities.FileContent, error) {
	var file *entities.FileContent
	err := g.call(ctx, fmt.Sprintf("get file %s@%s in %s", path, ref, repo), func() (*gh.Response, error) {
		fileContent, _, resp, err := g.client.Repositories.GetContents(
			ctx, repo.Owner, repo.Name, path,
			&gh.RepositoryContentGetOptions{Ref: ref},
		)
		if err != nil {
			return resp, err
		}
		if fileContent == nil {
			return resp, fmt.Errorf("%w: path %q is a directory, not a file", entities.ErrValidation, path)
		}
		content, decodeErr := fileContent.GetContent()
		if decodeErr != nil {
			return resp, fmt.Errorf("failed to decode file content: %w", decodeErr)
		}
		file = &entities.FileContent{Path: path, Content: content, SHA: fileContent.GetSHA()}
		return resp, nil
	})
	return file, err
}

func (g *GitHubGatewayRepository) PutFileContent(
	ctx context.Context,
	repo entities.Repository,
	write entities.FileWrite,
) (string, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(write.Message),
		Content: []byte(write.Content),
	}
	if write.Branch != "" {
		opts.Branch = gh.String(write.Branch)
	}
	if write.SHA != "" {
		opts.SHA = gh.String(write.SHA)
	}

	var commitSHA string
	err := g.call(ctx, fmt.Sprintf("write file %s in %s", write.Path, repo), func() (*gh.Response, error) {
		var result *gh.RepositoryContentResponse
		var resp *gh.Response
		var err error
		if write.SHA == "" {
			result, resp, err = g.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, write.Path, opts)
		} else {
			result, resp, err = g.client.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, write.Path, opts)
		}
		if err == nil {
			commitSHA = result.Commit.GetSHA()
		}
		return resp, err
	})
	return commitSHA, err
}

func (g *GitHubGatewayRepository) ListTags(
	ctx context.Context,
	repo entities.Repository,
) ([]entities.Tag, error) {
	var allTags []entities.Tag
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		var nextPage int
		err := g.call(ctx, fmt.Sprintf("list tags in %s", repo), func() (*gh.Response, error) {
			tags, resp, err := g.client.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
			if err != nil {
				return resp, err
			}
			for _, tag := range tags {
				allTags = append(allTags, entities.Tag{
					Name:      tag.GetName(),
					CommitSHA: tag.GetCommit().GetSHA(),
				})
			}
			nextPage = resp.NextPage
			return resp, nil
		})
		if err != nil {
			return nil, err
		}
		if nextPage == 0 {
			break
		}
		opts.Page = nextPage
	}

	return allTags, nil
}

func (g *GitHubGatewayRepository) CreateRelease(
	ctx context.Context,
	repo entities.Repository,
	input entities.ReleaseInput,
) (*entities.Release, error) {
	var created *entities.Release
	err := g.call(ctx, fmt.Sprintf("create release %s in %s", input.TagName, repo), func() (*gh.Response, error) {
		release, resp, err := g.client.Repositories.CreateRelease(ctx, repo.Owner, repo.Name, &gh.RepositoryRelease{
			TagName:         gh.String(input.TagName),
			TargetCommitish: gh.String(input.TargetRef),
			Name:            gh.String(input.Name),
			Body:            gh.String(input.Body),
			Draft:           gh.Bool(input.Draft),
			Prerelease:      gh.Bool(input.Prerelease),
		})
		if err == nil {
			created = &entities.Release{ID: release.GetID(), URL: release.GetHTMLURL()}
		}
		return resp, err
	})
	return created, err
}

func (g *GitHubGatewayRepository) DeleteRelease(
	ctx context.Context,
	repo entities.Repository,
	id int64,
) error {
	return g.call(ctx, fmt.Sprintf("delete release %d in %s", id, repo), func() (*gh.Response, error) {
		return g.client.Repositories.DeleteRelease(ctx, repo.Owner, repo.Name, id)
	})
}

func (g *GitHubGatewayRepository) GetRepositoryMetadata(
	ctx context.Context,
	repo entities.Repository,
) (*entities.RepositoryMetadata, error) {
	var metadata *entities.RepositoryMetadata
	err := g.call(ctx, fmt.Sprintf("get repository %s", repo), func() (*gh.Response, error) {
		r, resp, err := g.client.Repositories.Get(ctx, repo.Owner, repo.Name)
		if err == nil {
			metadata = &entities.RepositoryMetadata{
				ID:            r.GetID(),
				FullName:      r.GetFullName(),
				DefaultBranch: r.GetDefaultBranch(),
				Private:       r.GetPrivate(),
				URL:           r.GetHTMLURL(),
			}
		}
		return resp, err
	})
	return metadata, err
}

func (g *GitHubGatewayRepository) ProtectBranch(
	ctx context.Context,
	repo entities.Repository,
	branch string,
	rules []string,
) error {
	request, err := protectionRequest(rules)
	if err != nil {
		return err
	}
	return g.call(ctx, fmt.Sprintf("protect branch %s in %s", branch, repo), func() (*gh.Response, error) {
		_, resp, err := g.client.Repositories.UpdateBranchProtection(ctx, repo.Owner, repo.Name, branch, request)
		return resp, err
	})
}

// GetIssue reads an issue; pull requests are rejected because they share the numbering.
func (g *GitHubGatewayRepository) GetIssue(
	ctx context.Context,
	repo entities.Repository,
	number int,
) (*entities.Issue, error) {
	var issue *entities.Issue
	err := g.call(ctx, fmt.Sprintf("get issue #%d in %s", number, repo), func() (*gh.Response, error) {
		i, resp, err := g.client.Issues.Get(ctx, repo.Owner, repo.Name, number)
		if err != nil {
			return resp, err
		}
		if i.IsPullRequest() {
			return resp, fmt.Errorf("%w: #%d is a pull request, not an issue", entities.ErrValidation, number)
		}
		labels := make([]string, 0, len(i.Labels))
		for _, label := range i.Labels {
			labels = append(labels, label.GetName())
		}
		issue = &entities.Issue{
			Number: i.GetNumber(),
			Title:  i.GetTitle(),
			Labels: labels,
			URL:    i.GetHTMLURL(),
		}
		return resp, nil
	})
	return issue, err
}

// protectionRequest translates rule identifiers into a GitHub protection request.
func protectionRequest(rules []string) (*gh.ProtectionRequest, error) {
	if err := entities.ValidateProtectionRules(rules); err != nil {
		return nil, err
	}

	request := &gh.ProtectionRequest{}
	for _, rule := range rules {
		switch rule {
		case entities.RuleRequireReview:
			request.RequiredPullRequestReviews = &gh.PullRequestReviewsEnforcementRequest{
				RequiredApprovingReviewCount: requiredReviewCount,
			}
		case entities.RuleRequireStatusChecks:
			request.RequiredStatusChecks = &gh.RequiredStatusChecks{Strict: true}
		case entities.RuleEnforceAdmins:
			request.EnforceAdmins = true
		case entities.RuleRestrictForcePush:
			request.AllowForcePushes = gh.Bool(false)
			request.AllowDeletions = gh.Bool(false)
		}
	}
	return request, nil
}
