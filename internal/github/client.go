package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// StatusError carries an upstream HTTP status across the gateway boundary so
// handlers can surface it to the chat without crashing the update loop.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// wrapErr converts go-github errors into *StatusError where a response status
// is available. 202 Accepted (fork in progress) is not an error.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var acc *gh.AcceptedError
	if errors.As(err, &acc) {
		return nil
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &StatusError{StatusCode: ghErr.Response.StatusCode, Message: ghErr.Message}
	}
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &StatusError{StatusCode: http.StatusForbidden, Message: "GitHub API rate limit reached, try again later"}
	}
	return err
}

// RepoSummary is a read-only projection of a GitHub repository object.
type RepoSummary struct {
	Name        string
	FullName    string
	Description string
	URL         string
	Stars       int
	Forks       int
	Language    string
	UpdatedAt   time.Time
	Owner       string
	Private     bool
}

// RepoDetail extends RepoSummary with the fields shown in the detail view.
type RepoDetail struct {
	RepoSummary
	Watchers      int
	SizeKB        int
	CreatedAt     time.Time
	DefaultBranch string
	License       string
	Homepage      string
	OpenIssues    int
}

// RepoPage is one page of the authenticated user's repositories.
type RepoPage struct {
	Repos   []RepoSummary
	Page    int
	PerPage int
	// Total is estimated from the Link header's last-page marker; zero when
	// the header is absent (single page).
	Total   int
	HasNext bool
}

// Org is a minimal organization projection.
type Org struct {
	Login       string
	Description string
}

// Client wraps every GitHub REST call the bot makes. It is stateless and safe
// for concurrent use; swap the whole client to change tokens.
type Client struct {
	token string
	hc    *http.Client // optional; for tests
}

func NewClient(token string) *Client {
	return &Client{token: token}
}

// NewClientWithHTTPClient returns a client that uses the given http.Client for
// API calls (e.g. in tests).
func NewClientWithHTTPClient(token string, hc *http.Client) *Client {
	return &Client{token: token, hc: hc}
}

// HasToken reports whether the client was built with a token. Account
// management is disabled without one; repository search still works.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) api(ctx context.Context) *gh.Client {
	if c.hc != nil {
		return gh.NewClient(c.hc)
	}
	if c.token == "" {
		return gh.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token})
	return gh.NewClient(oauth2.NewClient(ctx, ts))
}

// TestConnection verifies the token by fetching the authenticated user and
// returns the login name.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	u, _, err := c.api(ctx).Users.Get(ctx, "")
	if err != nil {
		return "", wrapErr(err)
	}
	return u.GetLogin(), nil
}

// ListRepos returns one page of the authenticated user's repositories sorted
// by last update.
func (c *Client) ListRepos(ctx context.Context, page, perPage int) (*RepoPage, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}
	repos, resp, err := c.api(ctx).Repositories.ListByAuthenticatedUser(ctx, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := &RepoPage{Page: page, PerPage: perPage, HasNext: len(repos) == perPage}
	if resp.LastPage > 0 {
		out.Total = resp.LastPage * perPage
	}
	for _, r := range repos {
		out.Repos = append(out.Repos, summarize(r))
	}
	return out, nil
}

// CreateRepo creates a repository for the authenticated user and returns its
// web URL.
func (c *Client) CreateRepo(ctx context.Context, name, description string, private, autoInit bool) (string, error) {
	repo := &gh.Repository{
		Name:        gh.String(name),
		Description: gh.String(description),
		Private:     gh.Bool(private),
		AutoInit:    gh.Bool(autoInit),
	}
	created, _, err := c.api(ctx).Repositories.Create(ctx, "", repo)
	if err != nil {
		return "", wrapErr(err)
	}
	return created.GetHTMLURL(), nil
}

// DeleteRepo permanently deletes owner/repo.
func (c *Client) DeleteRepo(ctx context.Context, owner, repo string) error {
	_, err := c.api(ctx).Repositories.Delete(ctx, owner, repo)
	return wrapErr(err)
}

// ForkRepo forks owner/repo into the authenticated user's account. GitHub
// answers 202 while the fork is created asynchronously; that counts as
// success here.
func (c *Client) ForkRepo(ctx context.Context, owner, repo string) (string, error) {
	forked, _, err := c.api(ctx).Repositories.CreateFork(ctx, owner, repo, nil)
	if err := wrapErr(err); err != nil {
		return "", err
	}
	if forked != nil && forked.GetHTMLURL() != "" {
		return forked.GetHTMLURL(), nil
	}
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo), nil
}

// GetRepo fetches the detail view of owner/repo.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*RepoDetail, error) {
	r, _, err := c.api(ctx).Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, wrapErr(err)
	}
	d := &RepoDetail{
		RepoSummary:   summarize(r),
		Watchers:      r.GetWatchersCount(),
		SizeKB:        r.GetSize(),
		CreatedAt:     r.GetCreatedAt().Time,
		DefaultBranch: r.GetDefaultBranch(),
		Homepage:      r.GetHomepage(),
		OpenIssues:    r.GetOpenIssuesCount(),
	}
	if lic := r.GetLicense(); lic != nil {
		d.License = lic.GetName()
	}
	return d, nil
}

// CreateFile creates or updates a file through the contents API. go-github
// base64-encodes the content in the request body as the API requires.
func (c *Client) CreateFile(ctx context.Context, owner, repo, path, content, message string) error {
	api := c.api(ctx)
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(message),
		Content: []byte(content),
	}
	existing, _, _, err := api.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err == nil && existing != nil {
		opts.SHA = existing.SHA
		_, _, err = api.Repositories.UpdateFile(ctx, owner, repo, path, opts)
		return wrapErr(err)
	}
	_, _, err = api.Repositories.CreateFile(ctx, owner, repo, path, opts)
	return wrapErr(err)
}

// ListBranches returns the branch names of owner/repo.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	branches, _, err := c.api(ctx).Repositories.ListBranches(ctx, owner, repo, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.GetName())
	}
	return names, nil
}

// CreateBranch creates branch from the head of fromBranch: read the base ref
// SHA, then create the new ref.
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, fromBranch string) error {
	api := c.api(ctx)
	base, _, err := api.Git.GetRef(ctx, owner, repo, "refs/heads/"+fromBranch)
	if err != nil {
		return wrapErr(err)
	}
	ref := &gh.Reference{
		Ref:    gh.String("refs/heads/" + branch),
		Object: &gh.GitObject{SHA: base.Object.SHA},
	}
	_, _, err = api.Git.CreateRef(ctx, owner, repo, ref)
	return wrapErr(err)
}

// CreateIssue opens an issue and returns its web URL.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (string, error) {
	req := &gh.IssueRequest{Title: gh.String(title), Body: gh.String(body)}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	issue, _, err := c.api(ctx).Issues.Create(ctx, owner, repo, req)
	if err != nil {
		return "", wrapErr(err)
	}
	return issue.GetHTMLURL(), nil
}

// ListOrgs returns the authenticated user's organizations.
func (c *Client) ListOrgs(ctx context.Context) ([]Org, error) {
	orgs, _, err := c.api(ctx).Organizations.List(ctx, "", nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([]Org, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, Org{Login: o.GetLogin(), Description: o.GetDescription()})
	}
	return out, nil
}

// CreateGist creates a gist from a filename->content mapping and returns its
// web URL.
func (c *Client) CreateGist(ctx context.Context, description string, files map[string]string, public bool) (string, error) {
	gist := &gh.Gist{
		Description: gh.String(description),
		Public:      gh.Bool(public),
		Files:       map[gh.GistFilename]gh.GistFile{},
	}
	for name, content := range files {
		gist.Files[gh.GistFilename(name)] = gh.GistFile{Content: gh.String(content)}
	}
	created, _, err := c.api(ctx).Gists.Create(ctx, gist)
	if err != nil {
		return "", wrapErr(err)
	}
	return created.GetHTMLURL(), nil
}

func summarize(r *gh.Repository) RepoSummary {
	s := RepoSummary{
		Name:      r.GetName(),
		FullName:  r.GetFullName(),
		URL:       r.GetHTMLURL(),
		Stars:     r.GetStargazersCount(),
		Forks:     r.GetForksCount(),
		UpdatedAt: r.GetUpdatedAt().Time,
		Private:   r.GetPrivate(),
	}
	s.Description = r.GetDescription()
	if s.Description == "" {
		s.Description = "No description"
	}
	s.Language = r.GetLanguage()
	if s.Language == "" {
		s.Language = "N/A"
	}
	if owner := r.GetOwner(); owner != nil {
		s.Owner = owner.GetLogin()
	}
	return s
}
