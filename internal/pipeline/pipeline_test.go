package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// mockClient serves canned facet data and records which repos were touched.
type mockClient struct {
	mu    sync.Mutex
	calls map[string]int

	repoMeta     map[string]models.RepositoryHandle
	contributors map[string][]models.Contributor
	languages    map[string]map[string]int
	weekly       map[string][]models.CommitActivityWeek
	issues       map[string][]models.IssueRecord
	pulls        map[string][]models.PullRequestRecord
	samples      map[string][]models.CommitSample
	punchCards   map[string]models.PunchCard

	failFacet string // facet name that errors for every repo
}

func newMockClient() *mockClient {
	return &mockClient{
		calls:        make(map[string]int),
		repoMeta:     make(map[string]models.RepositoryHandle),
		contributors: make(map[string][]models.Contributor),
		languages:    make(map[string]map[string]int),
		weekly:       make(map[string][]models.CommitActivityWeek),
		issues:       make(map[string][]models.IssueRecord),
		pulls:        make(map[string][]models.PullRequestRecord),
		samples:      make(map[string][]models.CommitSample),
		punchCards:   make(map[string]models.PunchCard),
	}
}

func (m *mockClient) record(facet, owner, repo string) error {
	m.mu.Lock()
	m.calls[facet+":"+owner+"/"+repo]++
	m.mu.Unlock()
	if m.failFacet == facet {
		return fmt.Errorf("%s unavailable", facet)
	}
	return nil
}

func (m *mockClient) GetRepository(ctx context.Context, owner, repo string) (*models.RepositoryHandle, error) {
	if err := m.record("repository", owner, repo); err != nil {
		return nil, err
	}
	if h, ok := m.repoMeta[owner+"/"+repo]; ok {
		return &h, nil
	}
	h := models.RepositoryHandle{Owner: owner, Name: repo, FullName: owner + "/" + repo, DefaultBranch: "main"}
	return &h, nil
}

func (m *mockClient) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	if err := m.record("languages", owner, repo); err != nil {
		return nil, err
	}
	return m.languages[owner+"/"+repo], nil
}

func (m *mockClient) ListContributors(ctx context.Context, owner, repo string) ([]models.Contributor, error) {
	if err := m.record("contributors", owner, repo); err != nil {
		return nil, err
	}
	return m.contributors[owner+"/"+repo], nil
}

func (m *mockClient) GetCommitActivity(ctx context.Context, owner, repo string) ([]models.CommitActivityWeek, error) {
	if err := m.record("commit_activity", owner, repo); err != nil {
		return nil, err
	}
	return m.weekly[owner+"/"+repo], nil
}

func (m *mockClient) ListIssues(ctx context.Context, owner, repo string) ([]models.IssueRecord, error) {
	if err := m.record("issues", owner, repo); err != nil {
		return nil, err
	}
	return m.issues[owner+"/"+repo], nil
}

func (m *mockClient) ListPullRequests(ctx context.Context, owner, repo string) ([]models.PullRequestRecord, error) {
	if err := m.record("pulls", owner, repo); err != nil {
		return nil, err
	}
	return m.pulls[owner+"/"+repo], nil
}

func (m *mockClient) ListCommitSamples(ctx context.Context, owner, repo string, limit int) ([]models.CommitSample, error) {
	if err := m.record("commits", owner, repo); err != nil {
		return nil, err
	}
	return m.samples[owner+"/"+repo], nil
}

func (m *mockClient) GetPunchCard(ctx context.Context, owner, repo string) (models.PunchCard, error) {
	if err := m.record("punch_card", owner, repo); err != nil {
		return models.PunchCard{}, err
	}
	return m.punchCards[owner+"/"+repo], nil
}

func handles(n int) []models.RepositoryHandle {
	out := make([]models.RepositoryHandle, n)
	for i := range out {
		name := fmt.Sprintf("repo%d", i)
		out[i] = models.RepositoryHandle{
			Owner:    "octo",
			Name:     name,
			FullName: "octo/" + name,
		}
	}
	return out
}

func recentWeek(now time.Time) models.CommitActivityWeek {
	return models.CommitActivityWeek{Week: now.Add(-7 * 24 * time.Hour).Unix(), Total: 10}
}

func TestAnalyzeAggregates(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	client := newMockClient()

	// repo0 is healthy and active, repo1 has a dominant contributor and no
	// recent commits.
	client.contributors["octo/repo0"] = []models.Contributor{
		{Login: "alice", Contributions: 50},
		{Login: "bob", Contributions: 50},
	}
	client.weekly["octo/repo0"] = []models.CommitActivityWeek{recentWeek(now)}
	client.contributors["octo/repo1"] = []models.Contributor{
		{Login: "carol", Contributions: 90},
		{Login: "dave", Contributions: 10},
	}
	client.weekly["octo/repo1"] = []models.CommitActivityWeek{
		{Week: now.Add(-200 * 24 * time.Hour).Unix(), Total: 3},
	}

	report, err := Analyze(context.Background(), client, "octo", handles(2), Options{
		Sleep: func(time.Duration) {},
		Now:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.Target != "octo" {
		t.Errorf("target = %q", report.Target)
	}
	if len(report.Repositories) != 2 {
		t.Fatalf("len(repositories) = %d", len(report.Repositories))
	}
	if report.Global.TotalRepos != 2 || report.Global.ActiveRepos != 1 || report.Global.InactiveRepos != 1 {
		t.Errorf("counts = %+v", report.Global)
	}
	if report.Global.HighRiskRepos != 1 {
		t.Errorf("high risk repos = %d, want 1", report.Global.HighRiskRepos)
	}
	if report.Repositories[1].BusFactor.Risk != models.RiskHigh {
		t.Errorf("repo1 risk = %s", report.Repositories[1].BusFactor.Risk)
	}
	if len(report.Global.Timeline) == 0 {
		t.Error("expected a non-empty timeline")
	}
	if len(report.Insights) == 0 {
		t.Error("expected insights to be generated")
	}
}

func TestAnalyzeFacetFailureIsIsolated(t *testing.T) {
	client := newMockClient()
	client.failFacet = "issues"
	client.contributors["octo/repo0"] = []models.Contributor{{Login: "alice", Contributions: 5}}

	report, err := Analyze(context.Background(), client, "octo", handles(1), Options{
		Sleep: func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("facet failure must not abort the run: %v", err)
	}

	repo := report.Repositories[0]
	if len(repo.Errors) != 1 || repo.Errors[0].Facet != "issues" {
		t.Fatalf("errors = %+v, want one issues facet error", repo.Errors)
	}
	// The other facets still computed
	if repo.BusFactor.TotalContributors != 1 {
		t.Errorf("bus factor skipped: %+v", repo.BusFactor)
	}
	// Missing issues read as no data, not as a zero score
	if repo.Health.Breakdown.IssueResolution != 40 {
		t.Errorf("issue resolution = %v, want full marks for no data", repo.Health.Breakdown.IssueResolution)
	}
}

func TestAnalyzeBatching(t *testing.T) {
	client := newMockClient()
	var sleeps []time.Duration

	_, err := Analyze(context.Background(), client, "octo", handles(7), Options{
		BatchSize:  3,
		BatchDelay: 250 * time.Millisecond,
		Sleep:      func(d time.Duration) { sleeps = append(sleeps, d) },
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// 7 repos in batches of 3 = 3 batches, delays between them only
	if len(sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 inter-batch delays", sleeps)
	}
	for _, d := range sleeps {
		if d != 250*time.Millisecond {
			t.Errorf("sleep = %v, want 250ms", d)
		}
	}
}

func TestAnalyzeMaxRepos(t *testing.T) {
	client := newMockClient()

	report, err := Analyze(context.Background(), client, "octo", handles(10), Options{
		MaxRepos: 4,
		Sleep:    func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(report.Repositories) != 4 {
		t.Errorf("len(repositories) = %d, want 4", len(report.Repositories))
	}
	if n := client.calls["contributors:octo/repo7"]; n != 0 {
		t.Errorf("repo beyond the cap was fetched %d times", n)
	}
}

func TestAnalyzeStressToggle(t *testing.T) {
	client := newMockClient()
	client.samples["octo/repo0"] = []models.CommitSample{
		{Message: "urgent fix", FilesChanged: 3, AuthoredAt: time.Now()},
	}

	report, err := Analyze(context.Background(), client, "octo", handles(1), Options{
		IncludeStress: true,
		Sleep:         func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Repositories[0].Stress == nil {
		t.Error("expected stress result when enabled")
	}
	// No API punch card configured, so it falls back to the sampled commit
	if report.Repositories[0].PunchCard == nil || report.Repositories[0].PunchCard.Total() != 1 {
		t.Errorf("punch card = %+v, want one sampled commit", report.Repositories[0].PunchCard)
	}

	report, err = Analyze(context.Background(), client, "octo", handles(1), Options{
		Sleep: func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Repositories[0].Stress != nil {
		t.Error("expected no stress result when disabled")
	}
	if n := client.calls["commits:octo/repo0"]; n != 1 {
		t.Errorf("commit samples fetched %d times, want 1 (enabled run only)", n)
	}
}

func TestAnalyzePunchCardMerged(t *testing.T) {
	client := newMockClient()

	var card0, card1 models.PunchCard
	card0[2][14] = 5 // Tuesday 14:00
	card1[2][14] = 3
	card1[5][22] = 1
	client.punchCards["octo/repo0"] = card0
	client.punchCards["octo/repo1"] = card1

	report, err := Analyze(context.Background(), client, "octo", handles(2), Options{
		IncludeStress: true,
		Sleep:         func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	merged := report.Global.PunchCard
	if merged == nil {
		t.Fatal("expected a merged global punch card")
	}
	if merged.Total() != 9 {
		t.Errorf("merged total = %d, want 9", merged.Total())
	}
	day, hour, count := merged.Peak()
	if day != 2 || hour != 14 || count != 8 {
		t.Errorf("peak = (%d, %d, %d), want (2, 14, 8)", day, hour, count)
	}
}

func TestAnalyzeResolvesBareHandles(t *testing.T) {
	client := newMockClient()
	client.repoMeta["octo/repo0"] = models.RepositoryHandle{
		Owner: "octo", Name: "repo0", FullName: "octo/repo0",
		DefaultBranch: "main", Language: "Go", Stars: 12,
	}
	client.languages["octo/repo0"] = map[string]int{"Go": 9000, "Makefile": 100}

	report, err := Analyze(context.Background(), client, "octo", handles(1), Options{
		Sleep: func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	repo := report.Repositories[0]
	if repo.Repo.Language != "Go" || repo.Repo.Stars != 12 {
		t.Errorf("bare handle not resolved: %+v", repo.Repo)
	}
	if repo.Languages["Go"] != 9000 {
		t.Errorf("languages = %v, want the byte breakdown", repo.Languages)
	}
	if n := client.calls["repository:octo/repo0"]; n != 1 {
		t.Errorf("repository resolved %d times, want 1", n)
	}
}

func TestAnalyzeSkipsResolutionForCompleteHandles(t *testing.T) {
	client := newMockClient()

	complete := []models.RepositoryHandle{{
		Owner: "octo", Name: "repo0", FullName: "octo/repo0", DefaultBranch: "main",
	}}
	_, err := Analyze(context.Background(), client, "octo", complete, Options{
		Sleep: func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if n := client.calls["repository:octo/repo0"]; n != 0 {
		t.Errorf("listed repo re-resolved %d times, want 0", n)
	}
}

func TestAnalyzeResolutionFailureIsIsolated(t *testing.T) {
	client := newMockClient()
	client.failFacet = "repository"
	client.contributors["octo/repo0"] = []models.Contributor{{Login: "alice", Contributions: 5}}

	report, err := Analyze(context.Background(), client, "octo", handles(1), Options{
		Sleep: func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("resolution failure must not abort the run: %v", err)
	}

	repo := report.Repositories[0]
	if len(repo.Errors) != 1 || repo.Errors[0].Facet != "repository" {
		t.Fatalf("errors = %+v, want one repository facet error", repo.Errors)
	}
	// Analysis proceeds on the bare handle
	if repo.BusFactor.TotalContributors != 1 {
		t.Errorf("bus factor skipped: %+v", repo.BusFactor)
	}
}

func TestAnalyzeCancellation(t *testing.T) {
	client := newMockClient()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Analyze(ctx, client, "octo", handles(6), Options{
		BatchSize: 2,
		Sleep:     func(time.Duration) { cancel() },
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAnalyzeOnRepoDone(t *testing.T) {
	client := newMockClient()
	var done int32

	_, err := Analyze(context.Background(), client, "octo", handles(5), Options{
		BatchSize:  2,
		Sleep:      func(time.Duration) {},
		OnRepoDone: func(models.RepoAnalysis) { atomic.AddInt32(&done, 1) },
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if done != 5 {
		t.Errorf("OnRepoDone fired %d times, want 5", done)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(nil); got != "no repositories" {
		t.Errorf("Describe(nil) = %q", got)
	}
	if got := Describe(handles(1)); got != "octo/repo0" {
		t.Errorf("Describe(1) = %q", got)
	}
	if got := Describe(handles(3)); got != "3 repositories" {
		t.Errorf("Describe(3) = %q", got)
	}
}
