package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
	"github.com/mmcdole/galleria/internal/query"
	"github.com/mmcdole/galleria/internal/tui/styles"
)

const (
	tickInterval  = 100 * time.Millisecond
	statusTimeout = 3 * time.Second
)

// FileResolver builds the public URL of a record's file
type FileResolver interface {
	FileURL(collection, recordID, filename string) string
}

// inputMode selects where key presses go
type inputMode int

const (
	modeBrowse inputMode = iota
	modeFilter
	modeSearch
)

// frame is one level of the navigation stack: a top-level view or a
// set/collection drilled into from it
type frame struct {
	items   *gallery.Items
	title   string
	snap    gallery.ItemsSnapshot
	cursor  int
	loading bool
	loaded  bool
}

// Model is the main application model
type Model struct {
	gallery *gallery.Gallery
	opener  Opener
	files   FileResolver
	notes   <-chan domain.Notification
	session <-chan struct{}
	logger  *slog.Logger

	views   []gallery.Variation
	viewIdx int
	roots   map[gallery.Variation]*frame
	stack   []*frame
	likers  map[string]*gallery.Liker

	mode        inputMode
	filterInput textinput.Model
	filterIdx   []int
	searchInput textinput.Model

	showHelp     bool
	spinnerFrame int
	status       string
	statusErr    bool
	statusSeq    int

	width  int
	height int

	initCmd tea.Cmd
}

// NewModel creates a new application model starting on the all-contents view
func NewModel(g *gallery.Gallery, opener Opener, files FileResolver, notes <-chan domain.Notification, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	var views []gallery.Variation
	for _, v := range gallery.Variations() {
		if !v.NeedsParent() {
			views = append(views, v)
		}
	}

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.PromptStyle = styles.FilterPromptStyle
	filter.TextStyle = styles.FilterStyle
	filter.CharLimit = 100

	search := textinput.New()
	search.Prompt = "search: "
	search.PromptStyle = styles.FilterPromptStyle
	search.TextStyle = styles.FilterStyle
	search.CharLimit = 200

	// Session observers run on the lookup goroutine; changes are coalesced
	// into one pending signal.
	session := make(chan struct{}, 1)
	g.Session().OnChange(func(gallery.SessionState) {
		select {
		case session <- struct{}{}:
		default:
		}
	})

	m := Model{
		gallery:     g,
		opener:      opener,
		files:       files,
		notes:       notes,
		session:     session,
		logger:      logger,
		views:       views,
		roots:       make(map[gallery.Variation]*frame),
		likers:      make(map[string]*gallery.Liker),
		filterInput: filter,
		searchInput: search,
	}
	m.initCmd = m.enterView(0)
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.initCmd,
		TickCmd(tickInterval),
		WaitForNotificationCmd(m.notes),
		WaitForSessionChangeCmd(m.session),
	)
}

// enterView makes views[idx] the root of the stack, fetching it the first
// time it is shown
func (m *Model) enterView(idx int) tea.Cmd {
	if len(m.views) == 0 {
		return nil
	}
	m.viewIdx = (idx + len(m.views)) % len(m.views)
	v := m.views[m.viewIdx]
	root, ok := m.roots[v]
	if !ok {
		items, err := m.gallery.Items(v, "")
		if err != nil {
			return m.setStatus(err.Error(), true)
		}
		root = &frame{items: items, title: variationLabel(v)}
		m.roots[v] = root
	}
	m.stack = []*frame{root}
	m.clearFilter()
	if !root.loaded && !root.loading {
		return m.fetch(root, 1)
	}
	return nil
}

// push drills into the contents of a set or collection
func (m *Model) push(v gallery.Variation, parent domain.ListItem) tea.Cmd {
	items, err := m.gallery.Items(v, parent.GetID())
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	f := &frame{items: items, title: parent.GetTitle()}
	m.stack = append(m.stack, f)
	m.clearFilter()
	return m.fetch(f, 1)
}

func (m *Model) pop() {
	if len(m.stack) > 1 {
		m.stack = m.stack[:len(m.stack)-1]
		m.clearFilter()
	}
}

func (m *Model) current() *frame {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m *Model) fetch(f *frame, page int) tea.Cmd {
	f.loading = true
	return FetchCmd(f.items, page)
}

// invalidate marks every view stale after a filter preference changed and
// refetches the visible one from the first page
func (m *Model) invalidate() tea.Cmd {
	for _, root := range m.roots {
		root.loaded = false
	}
	for _, f := range m.stack {
		f.loaded = false
	}
	m.clearFilter()
	if f := m.current(); f != nil {
		f.cursor = 0
		return m.fetch(f, 1)
	}
	return nil
}

// refreshPersonal marks views that depend on the signed-in user stale and
// refetches the visible one
func (m *Model) refreshPersonal() tea.Cmd {
	for _, f := range m.frames() {
		if f.items.Variation().Personal() {
			f.loaded = false
		}
	}
	f := m.current()
	if f == nil || f.loading || !f.items.Variation().Personal() {
		return nil
	}
	return m.fetch(f, max(1, f.snap.Page))
}

// visible returns the items of the current frame after the local filter
func (m *Model) visible() []domain.ListItem {
	f := m.current()
	if f == nil {
		return nil
	}
	if m.filterInput.Value() == "" {
		return f.snap.Items
	}
	out := make([]domain.ListItem, 0, len(m.filterIdx))
	for _, i := range m.filterIdx {
		out = append(out, f.snap.Items[i])
	}
	return out
}

func (m *Model) selected() domain.ListItem {
	f := m.current()
	items := m.visible()
	if f == nil || f.cursor < 0 || f.cursor >= len(items) {
		return nil
	}
	return items[f.cursor]
}

func (m *Model) applyFilter() {
	f := m.current()
	if f == nil {
		return
	}
	m.filterIdx = filterIndexes(f.snap.Items, m.filterInput.Value())
	f.cursor = 0
}

func (m *Model) clearFilter() {
	m.filterInput.SetValue("")
	m.filterInput.Blur()
	m.filterIdx = nil
	if m.mode == modeFilter {
		m.mode = modeBrowse
	}
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	return m.setStatusFor(text, isErr, statusTimeout)
}

func (m *Model) setStatusFor(text string, isErr bool, life time.Duration) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	if life <= 0 {
		life = statusTimeout
	}
	return ClearStatusCmd(m.statusSeq, life)
}

func (m *Model) liker(item *domain.ContentItem) *gallery.Liker {
	if l, ok := m.likers[item.ID]; ok && l.Item() == item {
		return l
	}
	l := m.gallery.Liker(item)
	m.likers[item.ID] = l
	return l
}

// Update handles messages and returns the updated model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filterInput.Width = max(10, msg.Width-10)
		m.searchInput.Width = max(10, msg.Width-14)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ItemsLoadedMsg:
		for _, f := range m.frames() {
			if f.items != msg.Items {
				continue
			}
			f.snap = msg.Snapshot
			f.loading = false
			f.loaded = true
			if f.cursor >= len(f.snap.Items) {
				f.cursor = max(0, len(f.snap.Items)-1)
			}
		}
		if f := m.current(); f != nil && f.items == msg.Items && m.filterInput.Value() != "" {
			m.applyFilter()
		}
		return m, nil

	case FetchFailedMsg:
		for _, f := range m.frames() {
			if f.items == msg.Items {
				f.loading = false
			}
		}
		text := "Failed to load " + variationLabel(msg.Items.Variation())
		switch {
		case errors.Is(msg.Err, domain.ErrNotAuthenticated):
			text += ": sign in with 'galleria login'"
		case errors.Is(msg.Err, domain.ErrNoUploader):
			text += ": no uploader profile"
		default:
			text += ": " + msg.Err.Error()
		}
		cmd := m.setStatus(text, true)
		return m, cmd

	case LikeToggledMsg:
		msg.Liker.Apply(msg.Change)
		if msg.Change.Liked {
			cmd := m.setStatus("Liked", false)
			return m, cmd
		}
		cmd := m.setStatus("Unliked", false)
		return m, cmd

	case OpenedMsg:
		cmd := m.setStatus("Opened "+msg.Title, false)
		return m, cmd

	case NotificationMsg:
		n := msg.Notification
		text := n.Summary
		if n.Detail != "" {
			text += ": " + n.Detail
		}
		status := m.setStatusFor(text, n.Severity == domain.SeverityError, n.Life)
		return m, tea.Batch(status, WaitForNotificationCmd(m.notes))

	case SessionChangedMsg:
		cmd := m.refreshPersonal()
		return m, tea.Batch(cmd, WaitForSessionChangeCmd(m.session))

	case ErrMsg:
		cmd := m.setStatus(msg.Error(), true)
		return m, cmd

	case ClearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case TickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(styles.SpinnerFrames)
		return m, TickCmd(tickInterval)
	}

	return m, nil
}

// frames returns every frame a fetch result may belong to
func (m *Model) frames() []*frame {
	out := make([]*frame, 0, len(m.roots)+len(m.stack))
	seen := make(map[*frame]bool)
	for _, f := range m.stack {
		seen[f] = true
		out = append(out, f)
	}
	for _, f := range m.roots {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, Keys.Quit):
			return m, tea.Quit
		default:
			m.showHelp = false
			return m, nil
		}
	}

	f := m.current()
	count := len(m.visible())

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, Keys.Up):
		if f != nil && f.cursor > 0 {
			f.cursor--
		}
		return m, nil

	case key.Matches(msg, Keys.Down):
		if f != nil && f.cursor < count-1 {
			f.cursor++
		}
		return m, nil

	case key.Matches(msg, Keys.Home):
		if f != nil {
			f.cursor = 0
		}
		return m, nil

	case key.Matches(msg, Keys.End):
		if f != nil {
			f.cursor = max(0, count-1)
		}
		return m, nil

	case key.Matches(msg, Keys.PrevPage):
		if f == nil || f.loading || f.snap.Page <= 1 {
			return m, nil
		}
		m.clearFilter()
		f.cursor = 0
		cmd := m.fetch(f, f.snap.Page-1)
		return m, cmd

	case key.Matches(msg, Keys.NextPage):
		if f == nil || f.loading || f.snap.Page >= f.items.PageCount() {
			return m, nil
		}
		m.clearFilter()
		f.cursor = 0
		cmd := m.fetch(f, f.snap.Page+1)
		return m, cmd

	case key.Matches(msg, Keys.NextView):
		cmd := m.enterView(m.viewIdx + 1)
		return m, cmd

	case key.Matches(msg, Keys.PrevView):
		cmd := m.enterView(m.viewIdx - 1)
		return m, cmd

	case key.Matches(msg, Keys.Enter):
		cmd := m.activate(m.selected())
		return m, cmd

	case key.Matches(msg, Keys.Open):
		if item, ok := m.selected().(*domain.ContentItem); ok {
			cmd := m.open(item)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, Keys.Back):
		m.pop()
		return m, nil

	case key.Matches(msg, Keys.Escape):
		if m.filterInput.Value() != "" {
			m.clearFilter()
			return m, nil
		}
		m.pop()
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.mode = modeFilter
		cmd := m.filterInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.Search):
		current, _ := m.gallery.Preferences().GetPref(domain.PrefSearchValue)
		m.searchInput.SetValue(current)
		m.searchInput.CursorEnd()
		m.mode = modeSearch
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, Keys.MostLiked):
		cmd := m.cycleMostLiked()
		return m, cmd

	case key.Matches(msg, Keys.Like):
		item, ok := m.selected().(*domain.ContentItem)
		if !ok {
			return m, nil
		}
		cmd := ToggleLikeCmd(m.liker(item))
		return m, cmd

	case key.Matches(msg, Keys.Refresh):
		if f == nil || f.loading {
			return m, nil
		}
		page := max(1, f.snap.Page)
		cmd := m.fetch(f, page)
		return m, cmd
	}

	return m, nil
}

// activate opens a content or drills into a set or collection
func (m *Model) activate(item domain.ListItem) tea.Cmd {
	switch it := item.(type) {
	case *domain.ContentItem:
		return m.open(it)
	case *domain.SetItem:
		return m.push(gallery.SetContents, it)
	case *domain.CollectionItem:
		return m.push(gallery.CollectionContents, it)
	}
	return nil
}

func (m *Model) open(item *domain.ContentItem) tea.Cmd {
	collection := item.CollectionName
	if collection == "" {
		collection = domain.CollectionContents
	}
	url := m.files.FileURL(collection, item.ID, item.File)
	if url == "" {
		return m.setStatus(item.Title+" has no file", true)
	}
	m.logger.Info("opening content", "id", item.ID, "file", item.File)
	return OpenCmd(m.opener, url, item.Title)
}

// cycleMostLiked steps the most-liked window through off and every preset
func (m *Model) cycleMostLiked() tea.Cmd {
	prefs := m.gallery.Preferences()
	current, _ := prefs.GetPref(domain.PrefMostLikedMode)

	windows := query.Windows()
	next := string(windows[0])
	for i, w := range windows {
		if string(w) == current {
			next = ""
			if i+1 < len(windows) {
				next = string(windows[i+1])
			}
			break
		}
	}

	var err error
	if next == "" {
		err = prefs.DeletePref(domain.PrefMostLikedMode)
	} else {
		err = prefs.SetPref(domain.PrefMostLikedMode, next)
	}
	if err != nil {
		return m.setStatus(err.Error(), true)
	}

	label := "most liked: off"
	if next != "" {
		label = "most liked: " + next
	}
	return tea.Batch(m.setStatus(label, false), m.invalidate())
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.clearFilter()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.searchInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeBrowse
		m.searchInput.Blur()
		cmd := m.applySearch(strings.TrimSpace(m.searchInput.Value()))
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// applySearch stores the title search term and refetches
func (m *Model) applySearch(term string) tea.Cmd {
	prefs := m.gallery.Preferences()
	var err error
	if term == "" {
		err = prefs.DeletePref(domain.PrefSearchValue)
	} else {
		err = prefs.SetPref(domain.PrefSearchValue, term)
	}
	if err != nil {
		return m.setStatus(err.Error(), true)
	}
	status := "search cleared"
	if term != "" {
		status = fmt.Sprintf("searching %q", term)
	}
	return tea.Batch(m.setStatus(status, false), m.invalidate())
}

// variationLabel is the tab title of a variation
func variationLabel(v gallery.Variation) string {
	switch v {
	case gallery.AllContents:
		return "Contents"
	case gallery.LikedContents:
		return "Liked"
	case gallery.AllSets:
		return "Sets"
	case gallery.AllCollections:
		return "Collections"
	case gallery.SavedCollections:
		return "Saved"
	case gallery.MyContents:
		return "Mine"
	case gallery.SetContents:
		return "Set"
	case gallery.CollectionContents:
		return "Collection"
	}
	return string(v)
}
