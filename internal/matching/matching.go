// Package matching decides whether a job posting should be delivered to a
// candidate based on the candidate's saved notification settings.
package matching

import (
	"strings"

	"github.com/maxaizer/job-alerts/internal/entities"
	"github.com/samber/lo"
)

// Matches reports whether any of the settings accepts the job. A candidate
// without settings is not subscribed to anything.
func Matches(settings []entities.NotificationSetting, job entities.JobPostingEvent) bool {
	if len(settings) == 0 {
		return false
	}

	return lo.SomeBy(settings, func(setting entities.NotificationSetting) bool {
		return SettingMatches(setting, job)
	})
}

// SettingMatches requires every non-empty criterion of the setting to pass.
func SettingMatches(setting entities.NotificationSetting, job entities.JobPostingEvent) bool {
	return matchesExact(setting.CompanyNames, job.CompanyName) &&
		matchesExact(setting.JobRoles, job.Role) &&
		matchesKeywords(setting.Keywords, job.Description)
}

func matchesExact(accepted []string, value string) bool {
	if len(accepted) == 0 {
		return true
	}

	value = strings.ToLower(value)
	return lo.ContainsBy(accepted, func(item string) bool {
		return strings.ToLower(item) == value
	})
}

func matchesKeywords(keywords []string, description string) bool {
	if len(keywords) == 0 {
		return true
	}
	if description == "" {
		return false
	}

	description = strings.ToLower(description)
	return lo.ContainsBy(keywords, func(keyword string) bool {
		return strings.Contains(description, strings.ToLower(keyword))
	})
}
