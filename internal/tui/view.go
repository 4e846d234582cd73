package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/metrics"
	"github.com/verte-zerg/codetype/internal/session"
	statsPkg "github.com/verte-zerg/codetype/internal/stats"
)

func (m *Model) renderTyping() string {
	if m.variant == nil {
		return ""
	}
	sess := m.variant.Session()
	target := []rune(sess.Target())
	input := []rune(sess.Buffer())
	if len(target) == 0 {
		return ""
	}
	cursorIndex := -1
	if len(input) < len(target) {
		cursorIndex = len(input)
	}
	styled := buildStyledRunes(target, input, cursorIndex)
	var code string
	if m.width == 0 {
		code = wrapStyledRunes(styled, 0)
	} else {
		width := contentWidth(m.width)
		code = lipgloss.NewStyle().Width(width).Render(wrapStyledRunes(styled, width))
	}

	lines := []string{m.renderHeader(), "", code, "", m.renderLive()}
	if m.notice != "" {
		lines = append(lines, m.renderNotice())
	}
	lines = append(lines, footerStyle.Render(m.typingHelp()))
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	v := m.variant
	var label string
	switch v.Kind() {
	case session.KindChallenge:
		ch, _ := v.Challenge()
		label = fmt.Sprintf("Challenge · %s · %d WPM / %d%%", ch.Title, ch.TargetWPM, ch.TargetAccuracy)
	case session.KindCustom:
		label = "Custom text"
	default:
		label = fmt.Sprintf("%s · %s/%s · %s", kindTitle(v.Kind()), v.Language(), v.Difficulty(), v.Snippet().Title)
	}
	return titleStyle.Render(label)
}

func kindTitle(k session.Kind) string {
	switch k {
	case session.KindPractice:
		return "Practice"
	case session.KindTimed:
		return "Timed"
	case session.KindAccuracy:
		return "Accuracy"
	case session.KindSpeed:
		return "Speed"
	default:
		return string(k)
	}
}

func (m *Model) renderLive() string {
	v := m.variant
	sess := v.Session()
	live := sess.Live()
	segments := []string{
		fmt.Sprintf("WPM %d", live.WPM),
		fmt.Sprintf("Acc %d%%", live.Accuracy),
	}
	if v.Kind() == session.KindTimed {
		segments = append(segments, fmt.Sprintf("%s left", formatClock(v.Remaining())))
	} else {
		segments = append(segments, metrics.FormatDuration(int(sess.Elapsed()/time.Second)))
	}
	line := footerStyle.Render(strings.Join(segments, " · "))
	if v.BelowTarget() {
		line += "  " + incorrectStyle.Render(fmt.Sprintf("Accuracy below %d%%", v.Threshold()))
	}
	return line
}

func (m *Model) typingHelp() string {
	help := "esc abandon · ctrl+r restart · ctrl+n new snippet · tab indent"
	switch m.variant.Kind() {
	case session.KindPractice:
		help += " · ctrl+l language · ctrl+d difficulty"
	case session.KindTimed:
		if m.variant.Session().State() == session.StateIdle {
			help += " · ctrl+t duration"
		}
	}
	return help
}

func (m *Model) renderResults() string {
	v := m.variant
	res, ok := v.Session().Result()
	if !ok {
		return ""
	}
	lines := []string{
		titleStyle.Render("Results"),
		"",
		fmt.Sprintf("WPM       %s", valueStyle.Render(fmt.Sprintf("%d", res.WPM))),
		fmt.Sprintf("Accuracy  %s", valueStyle.Render(fmt.Sprintf("%d%%", res.Accuracy))),
		fmt.Sprintf("Time      %s", valueStyle.Render(metrics.FormatDuration(res.DurationSeconds))),
		fmt.Sprintf("Typed     %d chars, %d correct", res.Typed, res.Correct),
		"",
		titleStyle.Render(metrics.Grade(res.WPM, res.Accuracy)),
	}
	if outcome, ok := v.Evaluate(); ok {
		ch, _ := v.Challenge()
		lines = append(lines, "", renderOutcome(ch, outcome, res.CompletedAt))
	}
	if m.notice != "" {
		lines = append(lines, "", m.renderNotice())
	}
	help := "r retry · n next · q quit"
	if _, ok := v.Record(); ok && !v.Submitted() {
		help = "s save · " + help
	}
	lines = append(lines, "", footerStyle.Render(help))
	return strings.Join(lines, "\n")
}

func renderOutcome(ch catalog.Challenge, o catalog.Outcome, now time.Time) string {
	check := func(ok bool, label string) string {
		if ok {
			return okStyle.Render("✓ " + label)
		}
		return incorrectStyle.Render("✗ " + label)
	}
	parts := []string{
		check(o.WPMMet, fmt.Sprintf("%d WPM", ch.TargetWPM)),
		check(o.AccuracyMet, fmt.Sprintf("%d%% accuracy", ch.TargetAccuracy)),
	}
	if ch.Duration > 0 {
		parts = append(parts, check(o.WithinTime, "within "+metrics.FormatDuration(ch.Duration)))
	}
	verdict := incorrectStyle.Render("Challenge failed")
	if o.Passed {
		verdict = okStyle.Render("Challenge passed")
		if ch.Badge != "" {
			verdict += " · badge: " + ch.Badge
		}
	}
	out := verdict + "\n" + strings.Join(parts, "  ")
	if reset := catalog.NextReset(ch.Type, now); !reset.IsZero() {
		out += "\n" + footerStyle.Render("Resets in "+formatClock(reset.Sub(now)))
	}
	return out
}

func (m *Model) renderEditor() string {
	lines := []string{
		titleStyle.Render("Custom text"),
		"",
		m.editor.View(),
	}
	if m.notice != "" {
		lines = append(lines, m.renderNotice())
	}
	lines = append(lines, footerStyle.Render("ctrl+s start · esc quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderNotice() string {
	if m.noticeErr {
		return incorrectStyle.Render(m.notice)
	}
	return footerStyle.Render(m.notice)
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.phase == phaseTyping && m.variant != nil {
		target := len([]rune(m.variant.Session().Target()))
		if target > 0 {
			typed := len([]rune(m.variant.Session().Buffer()))
			segments = append(segments, fmt.Sprintf("Progress %d%%", typed*100/target))
		}
	}
	if m.hasStats {
		segments = append(segments,
			fmt.Sprintf("Best %s WPM", statsPkg.FormatInt(m.summary.BestWPM)),
			fmt.Sprintf("Avg %s WPM · %s", statsPkg.FormatFloat(m.summary.AverageWPM, ""), statsPkg.FormatFloat(m.summary.AverageAccuracy, "%")),
			fmt.Sprintf("Streak %d", m.streak),
		)
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

// formatClock renders a countdown as M:SS, rounding partial seconds up.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
