package entities

// Issue is the read-only input that drives branch and pull request automation.
type Issue struct {
	Number int
	Title  string
	Labels []string
	URL    string
}
