package figures

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxLabelLines caps wrapped category labels; extra wrapped lines are dropped.
const MaxLabelLines = 2

var titleCaser = cases.Title(language.English)

// FormatTaskName turns "dyck_languages" into "Dyck Languages".
func FormatTaskName(task string) string {
	return titleCaser.String(strings.ReplaceAll(task, "_", " "))
}

// WrapLabel greedily fills words into lines of at most width display columns and keeps
// at most maxLines of them. Words wider than width are split. width <= 0 disables wrapping.
func WrapLabel(label string, width, maxLines int) []string {
	words := strings.Fields(label)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	cur := ""
	flush := func() {
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
	}
	for _, w := range words {
		for runewidth.StringWidth(w) > width {
			// break long words the way a paragraph filler does: fill the rest of the line first
			room := width
			if cur != "" {
				room = width - runewidth.StringWidth(cur) - 1
			}
			head := runewidth.Truncate(w, room, "")
			if head == "" {
				if cur != "" {
					flush()
					continue
				}
				head = string([]rune(w)[:1])
			}
			if cur != "" {
				cur += " " + head
			} else {
				cur = head
			}
			flush()
			w = w[len(head):]
		}
		if w == "" {
			continue
		}
		switch {
		case cur == "":
			cur = w
		case runewidth.StringWidth(cur)+1+runewidth.StringWidth(w) <= width:
			cur += " " + w
		default:
			flush()
			cur = w
		}
	}
	flush()
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// FormatValue renders a bar annotation, e.g. FormatValue(45, 1, "%") == "45.0%".
func FormatValue(v float64, decimals int, suffix string) string {
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(v, 'f', decimals, 64) + suffix
}
