package catalog

import "time"

// ChallengeType groups challenges by reset cadence.
type ChallengeType string

// Challenge types.
const (
	ChallengeDaily  ChallengeType = "daily"
	ChallengeWeekly ChallengeType = "weekly"
	ChallengeLevel  ChallengeType = "level"
)

// Valid reports whether t is a known type.
func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeDaily, ChallengeWeekly, ChallengeLevel:
		return true
	default:
		return false
	}
}

// Challenge is a goal attempted on a catalog snippet.
type Challenge struct {
	ID             string        `yaml:"id" json:"id"`
	Type           ChallengeType `yaml:"type" json:"type"`
	Level          int           `yaml:"level,omitempty" json:"level,omitempty"`
	Title          string        `yaml:"title" json:"title"`
	Description    string        `yaml:"description" json:"description"`
	Language       string        `yaml:"language" json:"language"`
	Difficulty     string        `yaml:"difficulty" json:"difficulty"`
	TargetWPM      int           `yaml:"target_wpm" json:"targetWPM"`
	TargetAccuracy int           `yaml:"target_accuracy" json:"targetAccuracy"`
	// Duration is the time limit in seconds.
	Duration int    `yaml:"duration" json:"duration"`
	Badge    string `yaml:"badge,omitempty" json:"badge,omitempty"`
}

// TimeLimit returns Duration as a time.Duration.
func (c Challenge) TimeLimit() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

// Outcome is the verdict on one challenge attempt.
type Outcome struct {
	WPMMet      bool
	AccuracyMet bool
	WithinTime  bool
	Passed      bool
}

// Evaluate checks a finished attempt against the challenge targets.
func (c Challenge) Evaluate(wpm, accuracy, durationSeconds int) Outcome {
	o := Outcome{
		WPMMet:      wpm >= c.TargetWPM,
		AccuracyMet: accuracy >= c.TargetAccuracy,
		WithinTime:  c.Duration <= 0 || durationSeconds <= c.Duration,
	}
	o.Passed = o.WPMMet && o.AccuracyMet && o.WithinTime
	return o
}

// NextReset returns when challenges of type t next rotate, in now's location.
// Daily challenges reset at the next midnight, weekly ones at midnight on the next Monday.
// Level challenges never reset and yield the zero time.
func NextReset(t ChallengeType, now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch t {
	case ChallengeDaily:
		return midnight.AddDate(0, 0, 1)
	case ChallengeWeekly:
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return midnight.AddDate(0, 0, days)
	default:
		return time.Time{}
	}
}
