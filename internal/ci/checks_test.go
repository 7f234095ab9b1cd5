package ci

import (
	"context"
	"errors"
	"testing"
	"time"

	"gradebot/internal/logger"
	apperr "gradebot/pkg/errors"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		checks     []Check
		wantFinal  string
		wantPassed string
		pending    bool
	}{
		{
			name: "all green",
			checks: []Check{
				{Name: "build", Conclusion: Success},
				{Name: "test", Conclusion: Success},
			},
			wantFinal:  "✓",
			wantPassed: "2/2 тестов пройдено",
		},
		{
			name: "one red",
			checks: []Check{
				{Name: "build", Conclusion: Success},
				{Name: "test", Conclusion: Failure},
			},
			wantFinal:  "✗",
			wantPassed: "1/2 тестов пройдено",
		},
		{
			name:    "no runs yet",
			checks:  nil,
			pending: true,
		},
		{
			name: "one still running",
			checks: []Check{
				{Name: "build", Conclusion: Success},
				{Name: "test", Conclusion: Pending},
			},
			pending: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := summarize("repo", "abc", tt.checks)
			if got := s.HasPending(); got != tt.pending {
				t.Fatalf("HasPending() = %v, want %v", got, tt.pending)
			}
			if tt.pending {
				return
			}
			if got := s.FinalResult(); got != tt.wantFinal {
				t.Errorf("FinalResult() = %q, want %q", got, tt.wantFinal)
			}
			if got := s.PassedLine(); got != tt.wantPassed {
				t.Errorf("PassedLine() = %q, want %q", got, tt.wantPassed)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Conclusion
	}{
		{"success", Success},
		{"failure", Failure},
		{"neutral", Pending},
		{"cancelled", Pending},
		{"", Pending},
	}
	for _, tt := range tests {
		if got := classify(tt.raw); got != tt.want {
			t.Errorf("classify(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSummaryLines(t *testing.T) {
	s := summarize("repo", "abc", []Check{
		{Name: "build", Conclusion: Success, URL: "https://ci/1"},
		{Name: "lint", Conclusion: Failure, URL: "https://ci/2"},
		{Name: "test", Conclusion: Pending, URL: "https://ci/3"},
	})
	want := []string{
		"✅ build — https://ci/1",
		"❌ lint — https://ci/2",
		"⏳ test — https://ci/3",
	}
	got := s.Lines()
	if len(got) != len(want) {
		t.Fatalf("Lines() returned %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

type fakeRepoAPI struct {
	workflows bool
	sha       string
	checks    []Check
	shaErr    error
	checksErr error
}

func (f *fakeRepoAPI) HasWorkflows(ctx context.Context, org, repo string) (bool, error) {
	return f.workflows, nil
}

func (f *fakeRepoAPI) LatestCommitSHA(ctx context.Context, org, repo string) (string, error) {
	return f.sha, f.shaErr
}

func (f *fakeRepoAPI) CheckRuns(ctx context.Context, org, repo, sha string) ([]Check, error) {
	return f.checks, f.checksErr
}

func (f *fakeRepoAPI) UserExists(ctx context.Context, username string) (bool, error) {
	return true, nil
}

func newTestAggregator(api repoAPI) *Aggregator {
	return &Aggregator{api: api, timeout: time.Second, log: logger.Get()}
}

func TestEvaluateNoWorkflows(t *testing.T) {
	a := newTestAggregator(&fakeRepoAPI{workflows: false})
	_, err := a.Evaluate(context.Background(), "org", "repo")
	if !errors.Is(err, apperr.ErrNoCIConfigured) {
		t.Fatalf("Evaluate() error = %v, want ErrNoCIConfigured", err)
	}
}

func TestEvaluateEmptyRepo(t *testing.T) {
	a := newTestAggregator(&fakeRepoAPI{workflows: true, shaErr: apperr.ErrNoCommits})
	_, err := a.Evaluate(context.Background(), "org", "repo")
	if !errors.Is(err, apperr.ErrNoCommits) {
		t.Fatalf("Evaluate() error = %v, want ErrNoCommits", err)
	}
}

func TestEvaluateNoRunsIsPending(t *testing.T) {
	a := newTestAggregator(&fakeRepoAPI{workflows: true, sha: "abc"})
	s, err := a.Evaluate(context.Background(), "org", "repo")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !s.HasPending() {
		t.Error("summary with no check runs should be pending")
	}
}

func TestEvaluateSuccess(t *testing.T) {
	a := newTestAggregator(&fakeRepoAPI{
		workflows: true,
		sha:       "abc",
		checks: []Check{
			{Name: "build", Conclusion: Success},
			{Name: "test", Conclusion: Success},
		},
	})
	s, err := a.Evaluate(context.Background(), "org", "repo")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if s.HasPending() {
		t.Fatal("nothing is pending")
	}
	if s.FinalResult() != "✓" {
		t.Errorf("FinalResult() = %q, want ✓", s.FinalResult())
	}
	if s.CommitSHA != "abc" {
		t.Errorf("CommitSHA = %q, want abc", s.CommitSHA)
	}
}
