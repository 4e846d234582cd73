package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/learn.yaml
var learnYAML []byte

// Guide sections, in display order.
const (
	SectionTips      = "tips"
	SectionFingers   = "fingers"
	SectionMistakes  = "mistakes"
	SectionShortcuts = "shortcuts"
)

// GuideSections lists the section names accepted by HasSection.
var GuideSections = []string{SectionTips, SectionFingers, SectionMistakes, SectionShortcuts}

// Tip is one piece of typing advice.
type Tip struct {
	Title  string `yaml:"title"`
	Detail string `yaml:"detail"`
}

// FingerZone maps a hand to its home keys.
type FingerZone struct {
	Hand    string `yaml:"hand"`
	Keys    string `yaml:"keys"`
	Fingers string `yaml:"fingers"`
}

// Mistake is a common code typing error with an example and a fix.
type Mistake struct {
	Mistake string `yaml:"mistake"`
	Example string `yaml:"example"`
	Fix     string `yaml:"fix"`
}

// Shortcut is an editor or terminal key binding.
type Shortcut struct {
	Category string `yaml:"category"`
	Keys     string `yaml:"keys"`
	Action   string `yaml:"action"`
}

// Guide is the static reference shown by the learn command.
type Guide struct {
	Tips      []Tip        `yaml:"tips"`
	Fingers   []FingerZone `yaml:"fingers"`
	Mistakes  []Mistake    `yaml:"mistakes"`
	Shortcuts []Shortcut   `yaml:"shortcuts"`
}

// DefaultGuide returns the built-in guide.
func DefaultGuide() (Guide, error) {
	return ParseGuide(learnYAML)
}

// ParseGuide decodes a guide and rejects empty sections.
func ParseGuide(data []byte) (Guide, error) {
	var g Guide
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Guide{}, fmt.Errorf("failed to parse guide: %w", err)
	}
	if len(g.Tips) == 0 || len(g.Fingers) == 0 || len(g.Mistakes) == 0 || len(g.Shortcuts) == 0 {
		return Guide{}, errors.New("guide has an empty section")
	}
	return g, nil
}

// ShortcutCategories returns categories in first-seen order.
func (g Guide) ShortcutCategories() []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range g.Shortcuts {
		if !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	return out
}

// HasSection reports whether name is a known section, ignoring case.
func HasSection(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range GuideSections {
		if s == name {
			return true
		}
	}
	return false
}
