package ci

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"

	"gradebot/internal/logger"
	apperr "gradebot/pkg/errors"
)

// Conclusion is the reduced state of one check run.
type Conclusion string

const (
	Success Conclusion = "success"
	Failure Conclusion = "failure"
	// Pending covers everything that has not concluded: queued and running
	// checks, but also neutral/cancelled/nil conclusions we cannot grade.
	Pending Conclusion = "pending"
)

// Check is one named CI verification result for a commit.
type Check struct {
	Name       string
	Conclusion Conclusion
	URL        string
}

// Summary aggregates the check runs of the latest commit of one repository.
type Summary struct {
	Repo      string
	CommitSHA string
	Checks    []Check

	PassedCount int
	TotalCount  int
}

// HasPending reports whether any run has not concluded yet. While true the
// summary carries no final verdict and must not be written to the roster.
func (s Summary) HasPending() bool {
	for _, c := range s.Checks {
		if c.Conclusion == Pending {
			return true
		}
	}
	return s.TotalCount == 0
}

// FinalResult is ✓ when every run succeeded and ✗ otherwise. Only
// meaningful when TotalCount > 0 and nothing is pending.
func (s Summary) FinalResult() string {
	if s.PassedCount == s.TotalCount && s.TotalCount > 0 {
		return "✓"
	}
	return "✗"
}

// PassedLine renders the user-facing pass ratio.
func (s Summary) PassedLine() string {
	return fmt.Sprintf("%d/%d тестов пройдено", s.PassedCount, s.TotalCount)
}

// Lines renders one user-facing line per check.
func (s Summary) Lines() []string {
	out := make([]string, 0, len(s.Checks))
	for _, c := range s.Checks {
		emoji := "⏳"
		switch c.Conclusion {
		case Success:
			emoji = "✅"
		case Failure:
			emoji = "❌"
		}
		out = append(out, fmt.Sprintf("%s %s — %s", emoji, c.Name, c.URL))
	}
	return out
}

// classify reduces a raw check-run conclusion. Anything that is not an
// explicit success or failure counts as pending.
func classify(conclusion string) Conclusion {
	switch conclusion {
	case "success":
		return Success
	case "failure":
		return Failure
	default:
		return Pending
	}
}

// summarize folds raw check runs into a Summary. Pure; the network side
// lives behind repoAPI.
func summarize(repo, sha string, checks []Check) Summary {
	s := Summary{Repo: repo, CommitSHA: sha, Checks: checks, TotalCount: len(checks)}
	for _, c := range checks {
		if c.Conclusion == Success {
			s.PassedCount++
		}
	}
	return s
}

// repoAPI is the slice of the source-control API the aggregator needs.
type repoAPI interface {
	HasWorkflows(ctx context.Context, org, repo string) (bool, error)
	LatestCommitSHA(ctx context.Context, org, repo string) (string, error)
	CheckRuns(ctx context.Context, org, repo, sha string) ([]Check, error)
	UserExists(ctx context.Context, username string) (bool, error)
}

// Aggregator fetches the latest commit's check runs and reduces them to a
// gradeable summary.
type Aggregator struct {
	api     repoAPI
	timeout time.Duration
	log     zerolog.Logger
}

func NewAggregator(token string) *Aggregator {
	return &Aggregator{
		api:     &githubAPI{cl: github.NewClient(nil).WithAuthToken(token)},
		timeout: 15 * time.Second,
		log:     logger.Get(),
	}
}

// Evaluate runs the grading probe for org/repo: CI marker, latest commit,
// check runs. An empty check-run list is not an error — CI may simply not
// have started — and yields a pending summary with zero counts.
func (a *Aggregator) Evaluate(ctx context.Context, org, repo string) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ok, err := a.api.HasWorkflows(ctx, org, repo)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, apperr.ErrNoCIConfigured
	}

	sha, err := a.api.LatestCommitSHA(ctx, org, repo)
	if err != nil {
		return Summary{}, err
	}

	checks, err := a.api.CheckRuns(ctx, org, repo, sha)
	if err != nil {
		return Summary{}, err
	}

	s := summarize(repo, sha, checks)
	a.log.Debug().Str("repo", repo).Str("sha", sha).
		Int("passed", s.PassedCount).Int("total", s.TotalCount).
		Msg("check runs evaluated")
	return s, nil
}

// UserExists probes whether a GitHub account exists, for the linking flow.
func (a *Aggregator) UserExists(ctx context.Context, username string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.api.UserExists(ctx, username)
}

// githubAPI is the go-github-backed repoAPI.
type githubAPI struct {
	cl *github.Client
}

func isGithubNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func (g *githubAPI) HasWorkflows(ctx context.Context, org, repo string) (bool, error) {
	_, _, _, err := g.cl.Repositories.GetContents(ctx, org, repo, ".github/workflows", nil)
	if err != nil {
		if isGithubNotFound(err) {
			return false, nil
		}
		return false, apperr.Unavailablef("probe workflows of %s/%s", org, repo)
	}
	return true, nil
}

func (g *githubAPI) LatestCommitSHA(ctx context.Context, org, repo string) (string, error) {
	commits, _, err := g.cl.Repositories.ListCommits(ctx, org, repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		// GitHub reports an empty repository as a conflict, not an empty list.
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusConflict {
			return "", apperr.ErrNoCommits
		}
		return "", apperr.Unavailablef("list commits of %s/%s", org, repo)
	}
	if len(commits) == 0 {
		return "", apperr.ErrNoCommits
	}
	return commits[0].GetSHA(), nil
}

func (g *githubAPI) CheckRuns(ctx context.Context, org, repo, sha string) ([]Check, error) {
	results, _, err := g.cl.Checks.ListCheckRunsForRef(ctx, org, repo, sha, &github.ListCheckRunsOptions{})
	if err != nil {
		return nil, fmt.Errorf("check runs of %s/%s@%s: %w", org, repo, sha, apperr.ErrChecksUnavailable)
	}
	checks := make([]Check, 0, len(results.CheckRuns))
	for _, run := range results.CheckRuns {
		checks = append(checks, Check{
			Name:       run.GetName(),
			Conclusion: classify(run.GetConclusion()),
			URL:        run.GetHTMLURL(),
		})
	}
	return checks, nil
}

func (g *githubAPI) UserExists(ctx context.Context, username string) (bool, error) {
	_, _, err := g.cl.Users.Get(ctx, username)
	if err != nil {
		if isGithubNotFound(err) {
			return false, nil
		}
		return false, apperr.Unavailablef("look up github user %s", username)
	}
	return true, nil
}
