// Package catalog holds the code snippets and challenges used as typing targets.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/snippets.yaml
var snippetsYAML []byte

//go:embed data/challenges.yaml
var challengesYAML []byte

// ErrUnknownChallenge is returned when a challenge id is not in the catalog.
var ErrUnknownChallenge = errors.New("unknown challenge")

// Snippet is one typing target.
type Snippet struct {
	ID         string `yaml:"id" json:"id"`
	Language   string `yaml:"language" json:"language"`
	Difficulty string `yaml:"difficulty" json:"difficulty"`
	Title      string `yaml:"title" json:"title"`
	Code       string `yaml:"code" json:"code"`
}

type snippetFile struct {
	Snippets []Snippet `yaml:"snippets"`
}

type challengeFile struct {
	Challenges []Challenge `yaml:"challenges"`
}

// Catalog selects snippets and looks up challenges.
type Catalog struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	snippets   []Snippet
	challenges []Challenge
}

// Default returns the built-in catalog seeded with the current time.
func Default() (*Catalog, error) {
	return Parse(snippetsYAML, challengesYAML, time.Now().UnixNano())
}

// Parse builds a catalog from YAML snippet and challenge tables.
func Parse(snippetData, challengeData []byte, seed int64) (*Catalog, error) {
	var sf snippetFile
	if err := yaml.Unmarshal(snippetData, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse snippets: %w", err)
	}
	var cf challengeFile
	if err := yaml.Unmarshal(challengeData, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse challenges: %w", err)
	}
	return New(sf.Snippets, cf.Challenges, seed)
}

// New validates the tables and returns a catalog. The first snippet is the fallback target.
func New(snippets []Snippet, challenges []Challenge, seed int64) (*Catalog, error) {
	c := &Catalog{rnd: rand.New(rand.NewSource(seed))}
	if err := c.Add(snippets...); err != nil {
		return nil, err
	}
	if len(c.snippets) == 0 {
		return nil, errors.New("catalog has no snippets")
	}
	for _, ch := range challenges {
		if ch.ID == "" {
			return nil, errors.New("challenge id is required")
		}
		if !ch.Type.Valid() {
			return nil, fmt.Errorf("challenge %s: unknown type %q", ch.ID, ch.Type)
		}
		c.challenges = append(c.challenges, ch)
	}
	return c, nil
}

// Add appends snippets after validating them.
func (c *Catalog) Add(snippets ...Snippet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.snippets))
	for _, s := range c.snippets {
		seen[s.ID] = struct{}{}
	}
	for _, s := range snippets {
		if s.ID == "" {
			return errors.New("snippet id is required")
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate snippet id %s", s.ID)
		}
		if strings.TrimSpace(s.Code) == "" {
			return fmt.Errorf("snippet %s has no code", s.ID)
		}
		seen[s.ID] = struct{}{}
		c.snippets = append(c.snippets, s)
	}
	return nil
}

// LoadFile reads extra snippets from a YAML file with a top-level snippets list.
func LoadFile(path string) ([]Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippets: %w", err)
	}
	var sf snippetFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse snippets %s: %w", path, err)
	}
	return sf.Snippets, nil
}

// Snippets returns every snippet matching language and difficulty, in table order.
func (c *Catalog) Snippets(language, difficulty string) []Snippet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchLocked(language, difficulty)
}

func (c *Catalog) matchLocked(language, difficulty string) []Snippet {
	var out []Snippet
	for _, s := range c.snippets {
		if s.Language == language && s.Difficulty == difficulty {
			out = append(out, s)
		}
	}
	return out
}

// Random picks a matching snippet uniformly. Unknown combinations get the first snippet.
func (c *Catalog) Random(language, difficulty string) Snippet {
	c.mu.Lock()
	defer c.mu.Unlock()
	matches := c.matchLocked(language, difficulty)
	if len(matches) == 0 {
		return c.snippets[0]
	}
	return matches[c.rnd.Intn(len(matches))]
}

// Languages lists languages in order of first appearance.
func (c *Catalog) Languages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return distinct(c.snippets, func(s Snippet) string { return s.Language })
}

// Difficulties lists difficulties in order of first appearance.
func (c *Catalog) Difficulties() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return distinct(c.snippets, func(s Snippet) string { return s.Difficulty })
}

func distinct(snippets []Snippet, key func(Snippet) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range snippets {
		k := key(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Challenges returns all challenges in table order.
func (c *Catalog) Challenges() []Challenge {
	return append([]Challenge(nil), c.challenges...)
}

// Daily returns the daily challenges.
func (c *Catalog) Daily() []Challenge { return c.ofType(ChallengeDaily) }

// Weekly returns the weekly challenges.
func (c *Catalog) Weekly() []Challenge { return c.ofType(ChallengeWeekly) }

// Levels returns the level challenges.
func (c *Catalog) Levels() []Challenge { return c.ofType(ChallengeLevel) }

func (c *Catalog) ofType(t ChallengeType) []Challenge {
	var out []Challenge
	for _, ch := range c.challenges {
		if ch.Type == t {
			out = append(out, ch)
		}
	}
	return out
}

// Challenge looks up a challenge by id.
func (c *Catalog) Challenge(id string) (Challenge, error) {
	for _, ch := range c.challenges {
		if ch.ID == id {
			return ch, nil
		}
	}
	return Challenge{}, fmt.Errorf("%w: %s", ErrUnknownChallenge, id)
}
