package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/tui/styles"
)

// Breadcrumb returns the navigation path of the stack
func (m Model) Breadcrumb() string {
	parts := make([]string, 0, len(m.stack))
	for _, f := range m.stack {
		parts = append(parts, f.title)
	}
	return strings.Join(parts, " > ")
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	crumb := m.renderBreadcrumb()
	footer := m.renderFooter()

	listHeight := m.height - lipgloss.Height(header) - lipgloss.Height(crumb) - lipgloss.Height(footer)
	list := m.renderList(max(1, listHeight))

	return lipgloss.JoinVertical(lipgloss.Left, header, crumb, list, footer)
}

// renderHeader draws the variation tabs and the signed-in user
func (m Model) renderHeader() string {
	var tabs []string
	for i, v := range m.views {
		label := variationLabel(v)
		if i == m.viewIdx {
			tabs = append(tabs, styles.BadgeStyle.Render(label))
		} else {
			tabs = append(tabs, styles.DimBadgeStyle.Render(label))
		}
	}
	left := strings.Join(tabs, " ")

	right := styles.DimStyle.Render("not signed in")
	if user := m.gallery.Session().User(); user != nil {
		right = styles.SubtitleStyle.Render(user.DisplayName())
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.HeaderStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderBreadcrumb() string {
	crumb := m.Breadcrumb()
	if f := m.current(); f != nil && f.loaded {
		crumb += fmt.Sprintf("  (page %d/%d, %d items)", max(1, f.snap.Page), f.items.PageCount(), f.snap.Total)
	}
	if search, ok := m.gallery.Preferences().GetPref(domain.PrefSearchValue); ok && search != "" {
		crumb += fmt.Sprintf("  search %q", search)
	}
	if window, ok := m.gallery.Preferences().GetPref(domain.PrefMostLikedMode); ok && window != "" {
		crumb += "  most liked " + window
	}
	return " " + styles.AccentStyle.Render(styles.Truncate(crumb, max(1, m.width-2)))
}

// renderList draws the rows of the current page around the cursor
func (m Model) renderList(height int) string {
	f := m.current()
	if f == nil {
		return styles.Pad("", m.width)
	}

	if f.loading && len(f.snap.Items) == 0 {
		spinner := styles.SpinnerStyle.Render(styles.SpinnerFrames[m.spinnerFrame])
		return lipgloss.NewStyle().Height(height).Render(" " + spinner + " Loading...")
	}

	items := m.visible()
	if len(items) == 0 {
		msg := "Nothing here"
		if m.filterInput.Value() != "" {
			msg = "No matches"
		}
		return lipgloss.NewStyle().Height(height).Render(" " + styles.DimStyle.Render(msg))
	}

	start := 0
	if f.cursor >= height {
		start = f.cursor - height + 1
	}
	end := min(len(items), start+height)

	var userID string
	if user := m.gallery.Session().User(); user != nil {
		userID = user.ID
	}

	rows := make([]string, 0, height)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderRow(items[i], userID, i == f.cursor))
	}
	return lipgloss.NewStyle().Height(height).Render(strings.Join(rows, "\n"))
}

func (m Model) renderRow(item domain.ListItem, userID string, selected bool) string {
	marker := " "
	if content, ok := item.(*domain.ContentItem); ok {
		if m.isLiked(content, userID) {
			marker = styles.LikedChar
		} else {
			marker = styles.UnlikedChar
		}
	}

	titleWidth := max(10, m.width/2)
	descWidth := max(0, m.width-titleWidth-8)

	dim := styles.DimGray
	rose := styles.Rose
	parts := []styles.RowPart{
		{Text: marker + " ", Foreground: &rose},
		{Text: styles.Pad(styles.Truncate(item.GetTitle(), titleWidth), titleWidth)},
		{Text: "  "},
		{Text: styles.Truncate(item.GetDescription(), descWidth), Foreground: &dim},
	}
	return styles.RenderListRow(parts, selected, m.width)
}

// isLiked prefers the liker's flag once the user has toggled the item
func (m Model) isLiked(item *domain.ContentItem, userID string) bool {
	if l, ok := m.likers[item.ID]; ok && l.Item() == item {
		return l.IsLiked()
	}
	return item.LikedBy(userID)
}

func (m Model) renderFooter() string {
	var line string
	switch {
	case m.mode == modeFilter || (m.mode == modeBrowse && m.filterInput.Value() != "" && m.status == ""):
		line = m.filterInput.View()
	case m.mode == modeSearch:
		line = m.searchInput.View()
	case m.status != "":
		if m.statusErr {
			line = styles.ErrorStyle.Render(m.status)
		} else {
			line = styles.SuccessStyle.Render(m.status)
		}
	default:
		line = m.renderHints()
	}

	if f := m.current(); f != nil && f.loading && len(f.snap.Items) > 0 {
		line = styles.SpinnerStyle.Render(styles.SpinnerFrames[m.spinnerFrame]) + " " + line
	}
	return " " + line
}

func (m Model) renderHints() string {
	hints := []string{"tab views", "enter open", "space like", "/ filter", "s search", "m most liked", "? help", "q quit"}
	return styles.HelpDescStyle.Render(strings.Join(hints, " • "))
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, binding := range Keys.HelpBindings() {
		h := binding.Help()
		b.WriteString(styles.HelpKeyStyle.Render(styles.Pad(h.Key, 12)))
		b.WriteString(styles.HelpDescStyle.Render(h.Desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("press any key to close"))
	return styles.BrowserStyle.Render(b.String())
}
