// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TestMode classifies how a result was produced.
type TestMode string

// Test modes accepted by the aggregator.
const (
	TestModeSentences TestMode = "sentences"
	TestModeCustom    TestMode = "custom"
	TestModeWords     TestMode = "words"
)

// ParseTestMode converts a string into a TestMode.
func ParseTestMode(s string) (TestMode, error) {
	switch TestMode(strings.ToLower(strings.TrimSpace(s))) {
	case TestModeSentences:
		return TestModeSentences, nil
	case TestModeCustom:
		return TestModeCustom, nil
	case TestModeWords:
		return TestModeWords, nil
	default:
		return "", fmt.Errorf("unknown test mode %q", s)
	}
}

// Valid reports whether m is one of the known modes.
func (m TestMode) Valid() bool {
	_, err := ParseTestMode(string(m))
	return err == nil
}

// SessionRecord is the summary of one completed attempt as persisted by the aggregator.
type SessionRecord struct {
	WPM             int       `json:"wpm"`
	Accuracy        int       `json:"accuracy"`
	DurationSeconds int       `json:"duration"`
	Difficulty      string    `json:"difficulty"`
	TestMode        TestMode  `json:"testMode"`
	Language        string    `json:"language"`
	Timestamp       time.Time `json:"timestamp"`
}

// StreakDay marks a day (days since the Unix epoch, UTC) with at least one result.
type StreakDay struct {
	Day    int64 `json:"day"`
	Active bool  `json:"active"`
}

// Config defines practice settings.
type Config struct {
	Language         string
	Difficulty       string
	Mode             string
	Duration         time.Duration
	AccuracyTarget   int
	BackspaceAllowed bool
	TickInterval     time.Duration
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Language    string
	Since       *time.Time
	Last        int
	CurveWindow int
}
