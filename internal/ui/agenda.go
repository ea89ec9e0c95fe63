package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/daybook/internal/feed"
	"github.com/abelbrown/daybook/internal/group"
	"github.com/abelbrown/daybook/internal/model"
	"github.com/abelbrown/daybook/internal/readstate"
	"github.com/abelbrown/daybook/internal/window"
)

type rowKind int

const (
	rowHeader rowKind = iota
	rowItem
	rowToggle
	rowLoadMore
)

// row is one line of the flattened agenda. Item rows carry the id;
// toggle rows carry the bucket date they expand.
type row struct {
	kind         rowKind
	date         string
	id           string
	continuation bool
}

func (r row) selectable() bool {
	return r.kind != rowHeader
}

// buildRows flattens the grouped list into display rows. Each bucket
// contributes a header, its visible items in editorial order, and
// either the expanded continuation rows or a single "+N more" toggle.
// A trailing load-more row appears when the backend holds more pages.
func buildRows(m feed.Machine, byID map[string]model.Item, opts group.SortOptions) []row {
	rows := make([]row, 0, len(m.List.Groups)*4)
	for _, g := range m.List.Groups {
		rows = append(rows, row{kind: rowHeader, date: g.Date})
		for _, id := range group.SortBucket(g, byID, opts) {
			rows = append(rows, row{kind: rowItem, date: g.Date, id: id})
		}
		if len(g.HiddenItems) == 0 {
			continue
		}
		if m.HiddenShown(g.Date) {
			for _, id := range g.HiddenItems {
				rows = append(rows, row{kind: rowItem, date: g.Date, id: id, continuation: true})
			}
		} else {
			rows = append(rows, row{kind: rowToggle, date: g.Date})
		}
	}
	if m.HasMore() && m.State == feed.StateIdle {
		rows = append(rows, row{kind: rowLoadMore})
	}
	return rows
}

// renderAgenda renders the flattened rows with the cursor kept visible.
func renderAgenda(rows []row, m feed.Machine, byID map[string]model.Item, read model.ReadItems, scheme string, cursor, width, height int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No items in this window. Press 'r' to refresh.")
	}
	if height < 1 {
		height = 1
	}

	offset := 0
	if cursor >= height {
		offset = cursor - height + 1
	}

	var b strings.Builder
	rendered := 0
	for i := offset; i < len(rows) && rendered < height; i++ {
		b.WriteString(renderRow(rows[i], m, byID, read, scheme, i == cursor, width))
		b.WriteString("\n")
		rendered++
	}
	return b.String()
}

func renderRow(r row, m feed.Machine, byID map[string]model.Item, read model.ReadItems, scheme string, selected bool, width int) string {
	switch r.kind {
	case rowHeader:
		return DateHeader.Render(headerLabel(r.date))
	case rowToggle:
		n := hiddenCount(m, r.date)
		label := fmt.Sprintf("+ %d continuing", n)
		if selected {
			return SelectedItem.Render(label)
		}
		return ToggleRow.Render(label)
	case rowLoadMore:
		label := fmt.Sprintf("load more (%d of %d)", loadedCount(m), m.Total)
		if selected {
			return SelectedItem.Render(label)
		}
		return ToggleRow.Render(label)
	}
	return renderItemRow(r, byID, read, scheme, selected, width)
}

func renderItemRow(r row, byID map[string]model.Item, read model.ReadItems, scheme string, selected bool, width int) string {
	it, ok := byID[r.id]
	if !ok {
		// Merged from an older page whose payload is gone; show the id
		// rather than dropping the row.
		if selected {
			return SelectedItem.Render(r.id)
		}
		return ReadItem.Render(r.id)
	}

	timeCol := "     "
	if it.HasValidDates() && !isMidnight(it.Dates.Start) {
		timeCol = it.Dates.Start.Format("15:04")
	}

	var badges []string
	if it.IsTopStory(scheme) {
		badges = append(badges, TopStoryBadge.Render("★"))
	}
	if it.HasCoverage() {
		badges = append(badges, CoverageBadge.Render(fmt.Sprintf("✎%d", len(it.Coverages))))
	}
	badge := strings.Join(badges, " ")

	name := it.Name
	if it.Slugline != "" {
		name = it.Slugline + " | " + name
	}
	nameWidth := width - lipgloss.Width(badge) - len(timeCol) - 6
	if nameWidth < 20 {
		nameWidth = 20
	}
	name = runewidth.Truncate(name, nameWidth, "…")

	var style lipgloss.Style
	switch {
	case selected:
		style = SelectedItem
		if !readstate.IsUnread(it, read) {
			style = style.Foreground(lipgloss.Color("250")).Bold(false)
		}
	case r.continuation:
		style = ContinuationItem
	case readstate.IsUnread(it, read):
		style = UnreadItem
	default:
		style = ReadItem
	}

	line := TimeCol.Render(timeCol) + " " + style.Render(name)
	if badge != "" {
		line += " " + badge
	}
	return line
}

// headerLabel formats a bucket key for display. Day and week keys are
// full dates, month keys are "2006-01".
func headerLabel(date string) string {
	if t, err := time.Parse(window.DateLayout, date); err == nil {
		return t.Format("Mon 02 Jan 2006")
	}
	if t, err := time.Parse("2006-01", date); err == nil {
		return t.Format("January 2006")
	}
	return date
}

func hiddenCount(m feed.Machine, date string) int {
	for _, g := range m.List.Groups {
		if g.Date == date {
			return len(g.HiddenItems)
		}
	}
	return 0
}

// loadedCount is the number of distinct visible ids currently held,
// shown next to the backend total on the load-more row.
func loadedCount(m feed.Machine) int {
	seen := make(map[string]bool)
	for _, g := range m.List.Groups {
		for _, id := range g.Items {
			seen[id] = true
		}
	}
	return len(seen)
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0
}
