package entities

// ChangedFile is one file entry of a ref comparison.
type ChangedFile struct {
	Path        string
	Status      string
	ChangeCount int
}

// Comparison is the result of comparing two refs on the hosting service.
type Comparison struct {
	Files        []ChangedFile
	AheadBy      int
	BehindBy     int
	TotalCommits int
}

// FileContent is a file read from a ref.
type FileContent struct {
	Path    string
	Content string
	SHA     string
}

// FileWrite describes a create-or-update of one file. SHA is empty when creating.
type FileWrite struct {
	Path    string
	Content string
	Message string
	SHA     string
	Branch  string
}

// Tag is a tag ref and the commit it points to.
type Tag struct {
	Name      string
	CommitSHA string
}

// ReleaseInput contains the data needed to publish a release.
type ReleaseInput struct {
	TagName    string
	TargetRef  string
	Name       string
	Body       string
	Draft      bool
	Prerelease bool
}

// Release is a release returned by the hosting service.
type Release struct {
	ID  int64
	URL string
}
