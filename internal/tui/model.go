// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/session"
	statsPkg "github.com/verte-zerg/codetype/internal/stats"
)

const (
	saveTimeout  = 10 * time.Second
	statsTimeout = 5 * time.Second
	indentWidth  = 4
)

// Catalog supplies snippets and the practice selectors.
type Catalog interface {
	session.Source
	Languages() []string
	Difficulties() []string
}

// Options selects the test variant and its parameters.
type Options struct {
	Kind             session.Kind
	Language         string
	Difficulty       string
	Duration         time.Duration
	AccuracyTarget   int
	Challenge        *catalog.Challenge
	CustomText       string
	BackspaceAllowed bool
	TickInterval     time.Duration
	// Clock overrides the session time source.
	Clock session.Clock
}

type phase int

const (
	phaseEditor phase = iota
	phaseTyping
	phaseResults
)

type submitResultMsg struct {
	attempt uuid.UUID
	status  session.SubmitStatus
	err     error
}

type statsLoadedMsg struct {
	gen     uint64
	summary statsPkg.Summary
	streak  int
	err     error
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	opts   Options
	cat    Catalog
	agg    aggregator.Aggregator
	logger *zap.Logger
	sched  *loopScheduler

	variant *session.Variant
	phase   phase
	editor  textarea.Model

	width  int
	height int

	notice    string
	noticeErr bool
	saving    bool

	statsGen    uint64
	hasStats    bool
	summary     statsPkg.Summary
	streak      int
	durationIdx int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	okStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
)

// NewModel constructs a typing TUI model. A custom test without text opens the editor first.
func NewModel(opts Options, cat Catalog, agg aggregator.Aggregator, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		opts:   opts,
		cat:    cat,
		agg:    agg,
		logger: logger,
		sched:  newLoopScheduler(),
	}
	m.durationIdx = durationIndex(opts.Duration)
	if opts.Kind == session.KindCustom && strings.TrimSpace(opts.CustomText) == "" {
		m.openEditor()
		return m, nil
	}
	if err := m.startVariant(); err != nil {
		return nil, err
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadStats()}
	if m.phase == phaseEditor {
		cmds = append(cmds, textarea.Blink)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeEditor()
		return m, nil
	case tickMsg:
		if m.variant == nil || msg.attempt != m.variant.AttemptID() {
			return m, nil
		}
		cmd := m.sched.fire(msg)
		m.checkComplete()
		return m, cmd
	case submitResultMsg:
		return m, m.handleSubmitResult(msg)
	case statsLoadedMsg:
		m.handleStatsLoaded(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.phase {
		case phaseEditor:
			return m.updateEditor(msg)
		case phaseResults:
			return m.updateResults(msg)
		default:
			return m.updateTyping(msg)
		}
	default:
		if m.phase == phaseEditor {
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.phase {
	case phaseEditor:
		content = m.renderEditor()
	case phaseResults:
		content = m.renderResults()
	default:
		content = m.renderTyping()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) sessionOptions() session.Options {
	return session.Options{
		BackspaceAllowed: m.opts.BackspaceAllowed,
		TickInterval:     m.opts.TickInterval,
		Clock:            m.opts.Clock,
		Scheduler:        m.sched,
	}
}

func (m *Model) startVariant() error {
	v, err := m.buildVariant()
	if err != nil {
		return err
	}
	m.stopVariant()
	m.variant = v
	m.phase = phaseTyping
	m.saving = false
	return nil
}

func (m *Model) buildVariant() (*session.Variant, error) {
	opts := m.sessionOptions()
	switch m.opts.Kind {
	case session.KindPractice:
		return session.NewPractice(m.cat, m.opts.Language, m.opts.Difficulty, opts)
	case session.KindTimed:
		return session.NewTimed(m.cat, m.opts.Language, m.opts.Difficulty, m.opts.Duration, opts)
	case session.KindAccuracy:
		return session.NewAccuracy(m.cat, m.opts.Language, m.opts.Difficulty, m.opts.AccuracyTarget, opts)
	case session.KindChallenge:
		if m.opts.Challenge == nil {
			return nil, errors.New("no challenge selected")
		}
		return session.NewChallenge(m.cat, *m.opts.Challenge, opts)
	case session.KindCustom:
		return session.NewCustom(m.opts.CustomText, opts)
	default:
		return session.NewSpeed(m.cat, m.opts.Language, m.opts.Difficulty, opts)
	}
}

func (m *Model) stopVariant() {
	if m.variant != nil {
		m.variant.Session().Abandon()
	}
}

func (m *Model) quit() tea.Cmd {
	m.stopVariant()
	return tea.Quit
}

func (m *Model) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.variant.Session()
	switch msg.Type {
	case tea.KeyEsc:
		if sess.State() == session.StateActive {
			sess.Abandon()
			m.setNotice("Attempt abandoned. Start typing to begin again.", false)
			return m, nil
		}
		return m, m.quit()
	case tea.KeyCtrlR:
		m.variant.Retry()
		m.clearNotice()
		return m, nil
	case tea.KeyCtrlN:
		return m, m.next()
	case tea.KeyCtrlL:
		if m.variant.Kind() == session.KindPractice {
			m.opts.Language = cycle(m.cat.Languages(), m.variant.Language())
			m.variant.Select(m.opts.Language, m.variant.Difficulty())
		}
		return m, nil
	case tea.KeyCtrlD:
		if m.variant.Kind() == session.KindPractice {
			m.opts.Difficulty = cycle(m.cat.Difficulties(), m.variant.Difficulty())
			m.variant.Select(m.variant.Language(), m.opts.Difficulty)
		}
		return m, nil
	case tea.KeyCtrlT:
		if m.variant.Kind() == session.KindTimed && sess.State() == session.StateIdle {
			m.durationIdx = (m.durationIdx + 1) % len(session.TimedDurations)
			m.opts.Duration = session.TimedDurations[m.durationIdx]
			if err := m.startVariant(); err != nil {
				m.setNotice(err.Error(), true)
			}
		}
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		sess.Backspace()
	case tea.KeyEnter:
		sess.Type('\n')
	case tea.KeyTab:
		m.indent()
	case tea.KeySpace:
		sess.Type(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if !sess.Type(r) {
				break
			}
		}
	default:
		return m, nil
	}
	cmd := m.sched.start(m.variant.AttemptID())
	m.checkComplete()
	return m, cmd
}

// indent types the whitespace run the target expects at the cursor, up to one indent level.
func (m *Model) indent() {
	sess := m.variant.Session()
	target := []rune(sess.Target())
	pos := len([]rune(sess.Buffer()))
	if pos < len(target) && target[pos] == '\t' {
		sess.Type('\t')
		return
	}
	typed := 0
	for pos+typed < len(target) && target[pos+typed] == ' ' && typed < indentWidth {
		if !sess.Type(' ') {
			return
		}
		typed++
	}
	if typed == 0 {
		sess.Type(' ')
	}
}

func (m *Model) checkComplete() {
	if m.variant == nil || m.phase != phaseTyping {
		return
	}
	if m.variant.Session().State() != session.StateComplete {
		return
	}
	m.phase = phaseResults
	m.clearNotice()
	if _, ok := m.variant.Record(); !ok {
		m.setNotice("Practice results are not saved.", false)
	}
	if res, ok := m.variant.Session().Result(); ok {
		m.logger.Debug("attempt complete",
			zap.String("kind", string(m.variant.Kind())),
			zap.String("attempt", m.variant.AttemptID().String()),
			zap.Int("wpm", res.WPM),
			zap.Int("accuracy", res.Accuracy),
		)
	}
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, m.quit()
	case "s":
		return m, m.save()
	case "r":
		m.variant.Retry()
		m.phase = phaseTyping
		m.saving = false
		m.clearNotice()
		return m, nil
	case "n":
		return m, m.next()
	}
	return m, nil
}

// next moves to a new target: a new snippet for catalog variants, the editor for custom text.
func (m *Model) next() tea.Cmd {
	m.clearNotice()
	switch m.variant.Kind() {
	case session.KindPractice:
		m.variant.Reroll()
		m.phase = phaseTyping
		m.saving = false
		return nil
	case session.KindCustom:
		m.stopVariant()
		m.openEditor()
		m.editor.SetValue(m.opts.CustomText)
		return textarea.Blink
	case session.KindChallenge:
		m.variant.Retry()
		m.phase = phaseTyping
		m.saving = false
		return nil
	}
	if err := m.startVariant(); err != nil {
		m.setNotice(err.Error(), true)
	}
	return nil
}

func (m *Model) save() tea.Cmd {
	guard, err := m.variant.Guard()
	if err != nil {
		if errors.Is(err, session.ErrNotComplete) {
			m.setNotice("Nothing to save for this attempt.", false)
		} else {
			m.setNotice(err.Error(), true)
		}
		return nil
	}
	if guard.Submitted() {
		m.setNotice("Result already saved.", false)
		return nil
	}
	if m.saving {
		m.setNotice("Saving...", false)
		return nil
	}
	m.saving = true
	m.setNotice("Saving...", false)
	attempt := m.variant.AttemptID()
	agg := m.agg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		status, err := guard.Submit(ctx, agg)
		return submitResultMsg{attempt: attempt, status: status, err: err}
	}
}

func (m *Model) handleSubmitResult(msg submitResultMsg) tea.Cmd {
	if m.variant == nil || msg.attempt != m.variant.AttemptID() {
		return nil
	}
	if msg.status == session.SubmitStatusInFlight {
		return nil
	}
	m.saving = false
	if msg.err != nil {
		m.logger.Warn("failed to save result", zap.String("attempt", msg.attempt.String()), zap.Error(msg.err))
		m.setNotice(fmt.Sprintf("Save failed: %v. Press s to retry.", msg.err), true)
		return nil
	}
	switch msg.status {
	case session.SubmitStatusAlreadySubmitted:
		m.setNotice("Result already saved.", false)
		return nil
	default:
		m.setNotice("Result saved.", false)
		return m.loadStats()
	}
}

func (m *Model) loadStats() tea.Cmd {
	if m.agg == nil {
		return nil
	}
	m.statsGen++
	gen := m.statsGen
	agg := m.agg
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()
		summary, err := statsPkg.LoadSummary(ctx, agg)
		if err != nil {
			return statsLoadedMsg{gen: gen, err: err}
		}
		streak, err := agg.DailyStreak(ctx)
		return statsLoadedMsg{gen: gen, summary: summary, streak: streak, err: err}
	}
}

func (m *Model) handleStatsLoaded(msg statsLoadedMsg) {
	if msg.gen != m.statsGen {
		return
	}
	if msg.err != nil {
		m.logger.Warn("failed to load footer stats", zap.Error(msg.err))
		return
	}
	m.summary = msg.summary
	m.streak = msg.streak
	m.hasStats = true
}

func (m *Model) openEditor() {
	ta := textarea.New()
	ta.Placeholder = "Paste or type the code you want to practice..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.Focus()
	m.editor = ta
	m.phase = phaseEditor
	m.variant = nil
	m.resizeEditor()
}

func (m *Model) resizeEditor() {
	if m.phase != phaseEditor || m.width == 0 {
		return
	}
	m.editor.SetWidth(contentWidth(m.width))
	m.editor.SetHeight(max(3, m.height-6))
}

func (m *Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyCtrlS:
		m.opts.CustomText = m.editor.Value()
		if err := m.startVariant(); err != nil {
			if errors.Is(err, session.ErrEmptyTarget) {
				m.setNotice("Enter some text first.", true)
			} else {
				m.setNotice(err.Error(), true)
			}
			return m, nil
		}
		m.clearNotice()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeErr = false
}

func cycle(options []string, current string) string {
	if len(options) == 0 {
		return current
	}
	for i, o := range options {
		if strings.EqualFold(o, current) {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func durationIndex(d time.Duration) int {
	if d <= 0 {
		d = session.DefaultTimedDuration
	}
	for i, candidate := range session.TimedDurations {
		if candidate == d {
			return i
		}
	}
	return 0
}

func contentWidth(width int) int {
	w := int(float64(width) * 0.70)
	if w < 1 {
		return 1
	}
	return w
}
