package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/spf13/cobra"
)

// Filter flags
var (
	flagFilterName      string
	flagFilterLanguage  []string
	flagFilterTopics    []string
	flagFilterUpdated   string
	flagFilterSkipForks bool
)

func registerFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFilterName, "filter-name", "", "Only analyze repositories whose name matches this regex")
	cmd.Flags().StringSliceVar(&flagFilterLanguage, "filter-language", nil, "Only analyze repositories with these primary languages")
	cmd.Flags().StringSliceVar(&flagFilterTopics, "filter-topics", nil, "Only analyze repositories carrying all of these topics")
	cmd.Flags().StringVar(&flagFilterUpdated, "filter-updated", "", "Only analyze repositories updated within this window (e.g. 90d, 720h)")
	cmd.Flags().BoolVar(&flagFilterSkipForks, "filter-skip-forks", false, "Skip forked repositories")
}

// parseDuration parses a duration string like "30d" or "720h"
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		var days int
		_, err := fmt.Sscanf(daysStr, "%d", &days)
		if err != nil {
			return 0, fmt.Errorf("invalid day format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// RepoFilter applies filtering logic to repositories
type RepoFilter struct {
	NamePattern   *regexp.Regexp
	Languages     []string
	Topics        []string
	UpdatedWithin time.Duration
	SkipForks     bool
}

// NewRepoFilter creates a filter from CLI flags
func NewRepoFilter() (*RepoFilter, error) {
	filter := &RepoFilter{
		Languages: flagFilterLanguage,
		Topics:    flagFilterTopics,
		SkipForks: flagFilterSkipForks,
	}

	if flagFilterName != "" {
		pattern, err := regexp.Compile(flagFilterName)
		if err != nil {
			return nil, err
		}
		filter.NamePattern = pattern
	}

	if flagFilterUpdated != "" {
		duration, err := parseDuration(flagFilterUpdated)
		if err != nil {
			return nil, err
		}
		filter.UpdatedWithin = duration
	}

	return filter, nil
}

// Matches returns true if the repository passes all filter criteria
func (f *RepoFilter) Matches(repo models.RepositoryHandle) bool {
	// Archived repositories are always skipped
	if repo.Archived {
		return false
	}

	if f.SkipForks && repo.Fork {
		return false
	}

	if f.NamePattern != nil {
		if !f.NamePattern.MatchString(repo.Name) {
			return false
		}
	}

	if len(f.Languages) > 0 {
		repoLang := strings.ToLower(repo.Language)
		matched := false
		for _, lang := range f.Languages {
			if strings.ToLower(lang) == repoLang {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// Repository must have ALL specified topics
	if len(f.Topics) > 0 {
		for _, requiredTopic := range f.Topics {
			found := false
			for _, repoTopic := range repo.Topics {
				if strings.EqualFold(requiredTopic, repoTopic) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}

	if f.UpdatedWithin > 0 {
		if repo.UpdatedAt.Before(time.Now().Add(-f.UpdatedWithin)) {
			return false
		}
	}

	return true
}

// FilterStats tracks filtering statistics
type FilterStats struct {
	Total         int
	Archived      int
	Forks         int
	NameFiltered  int
	LangFiltered  int
	TopicFiltered int
	DateFiltered  int
	Passed        int
}

// FilterRepositories applies filters and returns matching repositories with statistics
func FilterRepositories(repos []models.RepositoryHandle, filter *RepoFilter) ([]models.RepositoryHandle, *FilterStats) {
	stats := &FilterStats{
		Total: len(repos),
	}

	var targetRepos []models.RepositoryHandle

	for _, r := range repos {
		if r.Archived {
			stats.Archived++
			continue
		}

		if r.Fork {
			stats.Forks++
			if filter.SkipForks {
				continue
			}
		}

		passed := true

		if filter.NamePattern != nil && !filter.NamePattern.MatchString(r.Name) {
			stats.NameFiltered++
			passed = false
		}

		if passed && len(filter.Languages) > 0 {
			repoLang := strings.ToLower(r.Language)
			matched := false
			for _, lang := range filter.Languages {
				if strings.ToLower(lang) == repoLang {
					matched = true
					break
				}
			}
			if !matched {
				stats.LangFiltered++
				passed = false
			}
		}

		if passed && len(filter.Topics) > 0 {
			for _, requiredTopic := range filter.Topics {
				found := false
				for _, repoTopic := range r.Topics {
					if strings.EqualFold(requiredTopic, repoTopic) {
						found = true
						break
					}
				}
				if !found {
					stats.TopicFiltered++
					passed = false
					break
				}
			}
		}

		if passed && filter.UpdatedWithin > 0 {
			if r.UpdatedAt.Before(time.Now().Add(-filter.UpdatedWithin)) {
				stats.DateFiltered++
				passed = false
			}
		}

		if passed {
			stats.Passed++
			targetRepos = append(targetRepos, r)
		}
	}

	return targetRepos, stats
}

// printFilterStats prints the filter breakdown when running interactively.
func printFilterStats(stats *FilterStats) {
	fmt.Printf("found %d total repositories\n", stats.Total)
	if stats.Archived > 0 {
		fmt.Printf("  %d archived (skipped)\n", stats.Archived)
	}
	if stats.Forks > 0 && !flagFilterSkipForks {
		fmt.Printf("  %d forks (included)\n", stats.Forks)
	} else if flagFilterSkipForks && stats.Forks > 0 {
		fmt.Printf("  %d forks (filtered)\n", stats.Forks)
	}
	if stats.NameFiltered > 0 {
		fmt.Printf("  %d filtered by name pattern\n", stats.NameFiltered)
	}
	if stats.LangFiltered > 0 {
		fmt.Printf("  %d filtered by language\n", stats.LangFiltered)
	}
	if stats.TopicFiltered > 0 {
		fmt.Printf("  %d filtered by topics\n", stats.TopicFiltered)
	}
	if stats.DateFiltered > 0 {
		fmt.Printf("  %d filtered by update date\n", stats.DateFiltered)
	}
	fmt.Printf("analyzing %d repositories\n", stats.Passed)
}
