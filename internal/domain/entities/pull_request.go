package entities

// PullRequestInput contains the data needed to open a pull request.
type PullRequestInput struct {
	Head  string
	Base  string
	Title string
	Body  string
	Draft bool
}

// PullRequest is a pull request returned by the hosting service.
type PullRequest struct {
	Number int
	URL    string
}

// PullRequestResult is the structured outcome of the PR automation.
type PullRequestResult struct {
	Number             int
	URL                string
	Branch             string
	Base               string
	Labels             []string
	AutoMergeRequested bool
}
