package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

const (
	wrongSpaceGlyph = '•'
	newlineGlyph    = '↵'
	tabGlyph        = '→'
)

type styledRune struct {
	s         string
	width     int
	isSpace   bool
	isNewline bool
}

func buildStyledRunes(targetRunes, inputRunes []rune, cursorIndex int) []styledRune {
	words := findWords(targetRunes)
	currentWord := wordForCursor(words, cursorIndex)

	out := make([]styledRune, 0, len(targetRunes))
	for i, target := range targetRunes {
		displayed := target
		style := pendingStyle
		typed := i < len(inputRunes)
		if typed {
			switch {
			case unicode.IsSpace(target) && inputRunes[i] != target:
				displayed = wrongSpaceGlyph
				style = incorrectStyle
			case inputRunes[i] == target:
				style = correctStyle
			default:
				style = incorrectStyle
			}
		} else if !unicode.IsSpace(target) {
			if currentWord != nil && i >= currentWord.start && i < currentWord.end {
				style = currentWordStyle
			} else {
				style = pendingStyle
			}
		}
		if i == cursorIndex && i >= len(inputRunes) {
			style = style.Underline(true)
		}

		visible := string(displayed)
		switch {
		case target == '\n' && displayed == target:
			// Only show the return marker where it matters: at the cursor.
			visible = " "
			if i == cursorIndex {
				visible = string(newlineGlyph)
			}
		case target == '\n':
			visible = string(newlineGlyph)
		case target == '\t' && displayed == target:
			visible = string(tabGlyph)
		}
		out = append(out, styledRune{
			s:         style.Render(visible),
			width:     runewidth.StringWidth(visible),
			isSpace:   target == ' ' || target == '\t',
			isNewline: target == '\n',
		})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(targetRunes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range targetRunes {
		if unicode.IsSpace(r) {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

func wordForCursor(words []wordRange, cursorIndex int) *wordRange {
	if len(words) == 0 {
		return nil
	}
	if cursorIndex < 0 {
		return &words[0]
	}
	wordIdx := -1
	for i, w := range words {
		if cursorIndex >= w.start && cursorIndex < w.end {
			wordIdx = i
			break
		}
		if cursorIndex < w.start {
			wordIdx = i
			break
		}
	}
	if wordIdx == -1 {
		return &words[len(words)-1]
	}
	return &words[wordIdx]
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks at target newlines and soft-wraps long lines at the last space after text.
func wrapStyledRunes(runes []styledRune, width int) string {
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if item.isNewline {
			line = append(line, item)
			out.WriteString(renderStyledRunes(line))
			out.WriteRune('\n')
			line = line[:0]
			lineWidth = 0
			lastSpaceIdx = -1
			i++
			continue
		}
		if width > 0 && lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace && hasText(line[:len(line)-1]) {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

// lastSpaceIndex finds the last space that follows text, so leading indentation never becomes a break.
func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i > 0; i-- {
		if line[i].isSpace && hasText(line[:i]) {
			return i
		}
	}
	return -1
}

func hasText(line []styledRune) bool {
	for _, item := range line {
		if !item.isSpace {
			return true
		}
	}
	return false
}
