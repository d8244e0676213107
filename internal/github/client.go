// Package github wraps the go-github client with the retry, pagination, and
// caching behavior the analysis pipeline depends on, converting API types
// into the pipeline's own models at the ingestion boundary.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v60/github"
	"github.com/pulse-tools/gh-pulse/internal/cache"
	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// ClientOptions configures a Client. The zero value works for anonymous,
// uncached access with default paging and retry behavior.
type ClientOptions struct {
	Token      string
	HTTPClient *http.Client // overrides the retry transport, used by tests

	Cache    cache.Store // nil disables caching
	CacheTTL time.Duration

	PageSize      int
	MaxRepoPages  int // 0 = all pages
	MaxIssuePages int
	MaxPRPages    int

	Retry RetryPolicy
}

// Client is the rate-limited fetch layer over the GitHub REST API.
type Client struct {
	gh    *gh.Client
	store cache.Store
	ttl   time.Duration

	pageSize      int
	maxRepoPages  int
	maxIssuePages int
	maxPRPages    int
}

// NewClient builds a Client whose outbound calls go through the retry
// transport.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &RetryTransport{Policy: opts.Retry},
		}
	}

	ghClient := gh.NewClient(httpClient)
	if opts.Token != "" {
		ghClient = ghClient.WithAuthToken(opts.Token)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		gh:            ghClient,
		store:         opts.Cache,
		ttl:           ttl,
		pageSize:      pageSize,
		maxRepoPages:  opts.MaxRepoPages,
		maxIssuePages: opts.MaxIssuePages,
		maxPRPages:    opts.MaxPRPages,
	}
}

// cached consults the injected store before fetching, and writes through on
// success. A broken cache never fails a fetch.
func cached[T any](ctx context.Context, c *Client, key string, fetch func() (T, error)) (T, error) {
	if c.store != nil {
		var v T
		if found, err := c.store.Get(key, &v); err == nil && found {
			return v, nil
		}
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	if c.store != nil {
		_ = c.store.Set(key, v, c.ttl)
	}
	return v, nil
}

// GetUser fetches a user profile. A missing user surfaces ErrNotFound.
func (c *Client) GetUser(ctx context.Context, login string) (*models.UserProfile, error) {
	user, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, classify(err)
	}
	return &models.UserProfile{
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
	}, nil
}

// ListUserRepositories fetches all repositories for a user, most recently
// updated first, bounded by the configured repo page cap.
func (c *Client) ListUserRepositories(ctx context.Context, login string) ([]models.RepositoryHandle, error) {
	key := fmt.Sprintf("repos:user:%s", login)
	return cached(ctx, c, key, func() ([]models.RepositoryHandle, error) {
		repos, err := FetchAllPages(ctx, c.pageSize, c.maxRepoPages, func(ctx context.Context, page, perPage int) ([]models.RepositoryHandle, error) {
			opts := &gh.RepositoryListByUserOptions{
				Sort:        "updated",
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			}
			batch, _, err := c.gh.Repositories.ListByUser(ctx, login, opts)
			if err != nil {
				return nil, err
			}
			return convertRepos(batch), nil
		})
		if err != nil {
			return nil, classify(err)
		}
		return repos, nil
	})
}

// ListOrgRepositories fetches all repositories for an organization.
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]models.RepositoryHandle, error) {
	key := fmt.Sprintf("repos:org:%s", org)
	return cached(ctx, c, key, func() ([]models.RepositoryHandle, error) {
		repos, err := FetchAllPages(ctx, c.pageSize, c.maxRepoPages, func(ctx context.Context, page, perPage int) ([]models.RepositoryHandle, error) {
			opts := &gh.RepositoryListByOrgOptions{
				Type:        "all",
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			}
			batch, _, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
			if err != nil {
				return nil, err
			}
			return convertRepos(batch), nil
		})
		if err != nil {
			return nil, classify(err)
		}
		return repos, nil
	})
}

// GetRepository fetches a single repository handle.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*models.RepositoryHandle, error) {
	key := fmt.Sprintf("repo:%s/%s", owner, repo)
	handle, err := cached(ctx, c, key, func() (models.RepositoryHandle, error) {
		r, _, err := c.gh.Repositories.Get(ctx, owner, repo)
		if err != nil {
			return models.RepositoryHandle{}, classify(err)
		}
		return convertRepo(r), nil
	})
	if err != nil {
		return nil, err
	}
	return &handle, nil
}

// ListContributors fetches the contributor list for a repository. The API
// returns it ordered descending by contributions; downstream calculators
// re-sort anyway.
func (c *Client) ListContributors(ctx context.Context, owner, repo string) ([]models.Contributor, error) {
	key := fmt.Sprintf("contributors:%s/%s", owner, repo)
	return cached(ctx, c, key, func() ([]models.Contributor, error) {
		contributors, _, err := c.gh.Repositories.ListContributors(ctx, owner, repo, &gh.ListContributorsOptions{
			ListOptions: gh.ListOptions{PerPage: c.pageSize},
		})
		if err != nil {
			return nil, classify(err)
		}
		out := make([]models.Contributor, 0, len(contributors))
		for _, contrib := range contributors {
			out = append(out, models.Contributor{
				Login:         contrib.GetLogin(),
				Contributions: contrib.GetContributions(),
			})
		}
		return out, nil
	})
}

// GetCommitActivity fetches weekly commit activity for the trailing year.
// A 202 from the stats endpoint means GitHub is still computing; that is
// treated as an empty series, not an error.
func (c *Client) GetCommitActivity(ctx context.Context, owner, repo string) ([]models.CommitActivityWeek, error) {
	key := fmt.Sprintf("commit_activity:%s/%s", owner, repo)
	return cached(ctx, c, key, func() ([]models.CommitActivityWeek, error) {
		weeks, _, err := c.gh.Repositories.ListCommitActivity(ctx, owner, repo)
		if err != nil {
			if classified := classify(err); classified == ErrPending {
				return nil, nil
			}
			return nil, classify(err)
		}
		out := make([]models.CommitActivityWeek, 0, len(weeks))
		for _, w := range weeks {
			out = append(out, models.CommitActivityWeek{
				Week:  w.GetWeek().Unix(),
				Total: w.GetTotal(),
			})
		}
		return out, nil
	})
}

// ListIssues fetches issues in all states, excluding pull requests. The
// issues endpoint conflates the two; the split happens here, at the
// ingestion boundary, so nothing downstream carries an is-a-PR flag.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]models.IssueRecord, error) {
	key := fmt.Sprintf("issues:%s/%s", owner, repo)
	return cached(ctx, c, key, func() ([]models.IssueRecord, error) {
		// Pagination walks the raw entries so short-page detection sees the
		// page size the API returned; the PR split happens only after the
		// walk, otherwise a page thinned by the filter would end it early.
		issues, err := FetchAllPages(ctx, c.pageSize, c.maxIssuePages, func(ctx context.Context, page, perPage int) ([]*gh.Issue, error) {
			opts := &gh.IssueListByRepoOptions{
				State:       "all",
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			}
			batch, _, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
			if err != nil {
				return nil, err
			}
			return batch, nil
		})
		if err != nil {
			return nil, classify(err)
		}

		records := make([]models.IssueRecord, 0, len(issues))
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			rec := models.IssueRecord{
				State:     issue.GetState(),
				CreatedAt: issue.GetCreatedAt().Time,
			}
			if issue.ClosedAt != nil {
				closed := issue.ClosedAt.Time
				rec.ClosedAt = &closed
			}
			records = append(records, rec)
		}
		return records, nil
	})
}

// ListPullRequests fetches pull requests in all states.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string) ([]models.PullRequestRecord, error) {
	key := fmt.Sprintf("pulls:%s/%s", owner, repo)
	return cached(ctx, c, key, func() ([]models.PullRequestRecord, error) {
		records, err := FetchAllPages(ctx, c.pageSize, c.maxPRPages, func(ctx context.Context, page, perPage int) ([]models.PullRequestRecord, error) {
			opts := &gh.PullRequestListOptions{
				State:       "all",
				Sort:        "created",
				Direction:   "desc",
				ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
			}
			batch, _, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
			if err != nil {
				return nil, err
			}
			out := make([]models.PullRequestRecord, 0, len(batch))
			for _, pr := range batch {
				rec := models.PullRequestRecord{
					State:     pr.GetState(),
					CreatedAt: pr.GetCreatedAt().Time,
				}
				if pr.ClosedAt != nil {
					closed := pr.ClosedAt.Time
					rec.ClosedAt = &closed
				}
				if pr.MergedAt != nil {
					merged := pr.MergedAt.Time
					rec.MergedAt = &merged
				}
				out = append(out, rec)
			}
			return out, nil
		})
		if err != nil {
			return nil, classify(err)
		}
		return records, nil
	})
}

// ListCommitSamples fetches up to limit recent commits with their changed
// file counts. The list endpoint does not include file detail, so each
// sampled commit costs one extra detail request; limit keeps that bounded.
func (c *Client) ListCommitSamples(ctx context.Context, owner, repo string, limit int) ([]models.CommitSample, error) {
	if limit <= 0 {
		return nil, nil
	}

	key := fmt.Sprintf("commit_samples:%s/%s:%d", owner, repo, limit)
	return cached(ctx, c, key, func() ([]models.CommitSample, error) {
		perPage := limit
		if perPage > DefaultPageSize {
			perPage = DefaultPageSize
		}
		commits, _, err := c.gh.Repositories.ListCommits(ctx, owner, repo, &gh.CommitsListOptions{
			ListOptions: gh.ListOptions{PerPage: perPage},
		})
		if err != nil {
			return nil, classify(err)
		}

		samples := make([]models.CommitSample, 0, limit)
		for _, commit := range commits {
			if len(samples) >= limit {
				break
			}
			detail, _, err := c.gh.Repositories.GetCommit(ctx, owner, repo, commit.GetSHA(), nil)
			if err != nil {
				continue // one unreadable commit does not spoil the sample
			}
			sample := models.CommitSample{
				SHA:          detail.GetSHA(),
				Message:      detail.GetCommit().GetMessage(),
				FilesChanged: len(detail.Files),
			}
			if author := detail.GetCommit().GetAuthor(); author != nil {
				sample.AuthoredAt = author.GetDate().Time
			}
			samples = append(samples, sample)
		}
		return samples, nil
	})
}

// GetPunchCard fetches the day-of-week by hour-of-day commit matrix.
// Pending statistics yield an empty card.
func (c *Client) GetPunchCard(ctx context.Context, owner, repo string) (models.PunchCard, error) {
	key := fmt.Sprintf("punchcard:%s/%s", owner, repo)
	return cached(ctx, c, key, func() (models.PunchCard, error) {
		var card models.PunchCard
		cells, _, err := c.gh.Repositories.ListPunchCard(ctx, owner, repo)
		if err != nil {
			if classify(err) == ErrPending {
				return card, nil
			}
			return card, classify(err)
		}
		for _, cell := range cells {
			day, hour := cell.GetDay(), cell.GetHour()
			if day >= 0 && day < 7 && hour >= 0 && hour < 24 {
				card[day][hour] = cell.GetCommits()
			}
		}
		return card, nil
	})
}

// ListLanguages fetches the byte counts per language for a repository.
func (c *Client) ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	key := fmt.Sprintf("languages:%s/%s", owner, repo)
	return cached(ctx, c, key, func() (map[string]int, error) {
		languages, _, err := c.gh.Repositories.ListLanguages(ctx, owner, repo)
		if err != nil {
			return nil, classify(err)
		}
		return languages, nil
	})
}

// GetRateLimit returns the current core rate limit status.
func (c *Client) GetRateLimit(ctx context.Context) (remaining, limit int, reset time.Time, err error) {
	rates, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return 0, 0, time.Time{}, classify(err)
	}
	core := rates.GetCore()
	return core.Remaining, core.Limit, core.Reset.Time, nil
}

func convertRepos(repos []*gh.Repository) []models.RepositoryHandle {
	out := make([]models.RepositoryHandle, 0, len(repos))
	for _, r := range repos {
		out = append(out, convertRepo(r))
	}
	return out
}

func convertRepo(r *gh.Repository) models.RepositoryHandle {
	handle := models.RepositoryHandle{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		Fork:          r.GetFork(),
		Archived:      r.GetArchived(),
		Language:      r.GetLanguage(),
		Topics:        r.Topics,
		Stars:         r.GetStargazersCount(),
		UpdatedAt:     r.GetUpdatedAt().Time,
	}
	if parent := r.GetParent(); parent != nil {
		handle.Parent = parent.GetFullName()
	}
	return handle
}
