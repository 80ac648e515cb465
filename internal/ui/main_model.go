package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/gubarz/shortlinks/internal/editor"
	"github.com/gubarz/shortlinks/internal/errors"
	"github.com/gubarz/shortlinks/internal/executor"
	"github.com/gubarz/shortlinks/internal/logging"
	"github.com/gubarz/shortlinks/internal/registry"
	"github.com/gubarz/shortlinks/internal/source"
)

// ============================================================================
// String Builder Pool - reduces GC pressure from rendering
// ============================================================================

var builderPool = sync.Pool{
	New: func() interface{} {
		return &strings.Builder{}
	},
}

func getBuilder() *strings.Builder {
	b := builderPool.Get().(*strings.Builder)
	b.Reset()
	return b
}

func putBuilder(b *strings.Builder) {
	if b.Cap() < 64*1024 { // Don't pool huge builders
		builderPool.Put(b)
	}
}

// ============================================================================
// Link Item
// ============================================================================

// linkItem is one registry entry with the title of its group
type linkItem struct {
	entry registry.Entry
	title string
}

// itemsFromRegistry flattens r in display order
func itemsFromRegistry(r registry.Registry) []linkItem {
	items := make([]linkItem, 0, r.Len())
	for _, g := range r {
		title := ""
		if g.Title != nil {
			title = *g.Title
		}
		for _, e := range g.Entries {
			items = append(items, linkItem{entry: e, title: title})
		}
	}
	return items
}

// matchesQuery checks if the item matches all search words
func (item *linkItem) matchesQuery(words []string) bool {
	for _, word := range words {
		if !containsIgnoreCase(item.entry.Path, word) &&
			!containsIgnoreCase(item.entry.URL, word) &&
			!containsIgnoreCase(item.title, word) {
			return false
		}
	}
	return true
}

// containsIgnoreCase reports whether s contains the lowercased substr
func containsIgnoreCase(s, substr string) bool {
	if len(substr) > len(s) {
		return false
	}
	return strings.Contains(strings.ToLower(s), substr)
}

// ============================================================================
// Messages
// ============================================================================

// filterMsg triggers filtering after debounce
type filterMsg struct{}

// debounceFilter returns a command that triggers filtering after a delay
func debounceFilter() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return filterMsg{}
	})
}

// loadedMsg carries a freshly loaded registry
type loadedMsg struct {
	reg registry.Registry
	err error
}

// appendedMsg carries the outcome of a form submission
type appendedMsg struct {
	link editor.NewLink
	res  *editor.Result
	err  error
}

// ============================================================================
// Main Model - Link Picker + Create Form
// ============================================================================

// uiPhase represents which screen the TUI shows
type uiPhase int

const (
	phaseList uiPhase = iota // Browsing links
	phaseForm                // Creating a link
)

// Deps are the collaborators the TUI needs
type Deps struct {
	Loader    source.Loader
	Editor    *editor.Editor // nil disables the create form
	Clipboard executor.Clipboard
	ShortURL  func(path string) string
}

// mainModel is the Bubble Tea model for both screens. Staying in one model
// keeps a single alt-screen session.
type mainModel struct {
	width     int
	height    int
	textInput textinput.Model
	quitting  bool
	phase     uiPhase
	deps      Deps

	// List state
	items    []linkItem
	filtered []linkItem
	cursor   int
	offset   int
	loading  bool
	loadErr  error
	status   string
	failed   bool
	copied   string

	// Form state (only used in phaseForm)
	form *formState
}

// newMainModel creates a mainModel that loads its links on Init
func newMainModel(deps Deps) mainModel {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return mainModel{
		textInput: ti,
		phase:     phaseList,
		deps:      deps,
		loading:   true,
	}
}

// Init implements tea.Model
func (m mainModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load())
}

// load returns a command that reads the registry from the loader
func (m mainModel) load() tea.Cmd {
	loader := m.deps.Loader
	return func() tea.Msg {
		text, err := loader.Load(context.Background())
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{reg: registry.Parse(text)}
	}
}

// Update implements tea.Model
func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 4
	case loadedMsg:
		m.setLinks(msg.reg, msg.err)
		return m, nil
	case appendedMsg:
		return m.handleAppended(msg)
	}

	switch m.phase {
	case phaseForm:
		return m.updateForm(msg)
	default:
		return m.updateList(msg)
	}
}

// setLinks replaces the list contents and reapplies the current filter
func (m *mainModel) setLinks(reg registry.Registry, err error) {
	m.loading = false
	m.loadErr = err
	if err != nil {
		logger := logging.GetLogger("ui")
		logger.Error().Err(err).Msg("Failed to load links")
		return
	}
	m.items = itemsFromRegistry(reg)
	m.filterLinks()
}

// updateList handles updates while browsing
func (m mainModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleListKey(msg); handled {
			return m, cmd
		}
	case filterMsg:
		m.filterLinks()
		return m, nil
	}

	prevQuery := m.textInput.Value()
	var tiCmd tea.Cmd
	m.textInput, tiCmd = m.textInput.Update(msg)
	cmds = append(cmds, tiCmd)

	// Only trigger debounced filter if query changed
	if m.textInput.Value() != prevQuery {
		cmds = append(cmds, debounceFilter())
	}

	return m, tea.Batch(cmds...)
}

// handleListKey processes keyboard input while browsing
func (m *mainModel) handleListKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return tea.Quit, true
	case "enter":
		if m.cursor < len(m.filtered) {
			return m.copySelected(), true
		}
		return nil, true
	case "ctrl+n":
		if m.deps.Editor == nil {
			m.setStatus("No local links file configured", true)
			return nil, true
		}
		m.phase = phaseForm
		m.form = newFormState()
		return textinput.Blink, true
	case "ctrl+r":
		m.loading = true
		m.setStatus("", false)
		return m.load(), true
	case "up", "ctrl+p":
		m.moveCursor(-1)
	case "down":
		m.moveCursor(1)
	case "pgup":
		m.moveCursor(-10)
	case "pgdown":
		m.moveCursor(10)
	case "home", "ctrl+a":
		m.cursor = 0
		m.adjustOffset()
	case "end", "ctrl+e":
		m.cursor = max(0, len(m.filtered)-1)
		m.adjustOffset()
	default:
		return nil, false
	}
	return nil, true
}

// copySelected copies the short URL of the selected link and quits
func (m *mainModel) copySelected() tea.Cmd {
	url := m.shortURL(m.filtered[m.cursor].entry.Path)
	if m.deps.Clipboard != nil {
		if err := m.deps.Clipboard.Copy(url); err != nil {
			m.setStatus("Copy failed: "+err.Error(), true)
			return nil
		}
	}
	m.copied = url
	m.quitting = true
	return tea.Quit
}

func (m *mainModel) shortURL(path string) string {
	if m.deps.ShortURL == nil {
		return path
	}
	return m.deps.ShortURL(path)
}

func (m *mainModel) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// moveCursor moves the cursor by delta, clamping to valid range
func (m *mainModel) moveCursor(delta int) {
	m.cursor += delta
	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// adjustOffset ensures cursor is visible within viewport
func (m *mainModel) adjustOffset() {
	viewHeight := maxInt(m.height-5, 3) // approximate list height
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+viewHeight {
		m.offset = m.cursor - viewHeight + 1
	}
	maxOffset := max(0, len(m.filtered)-viewHeight)
	m.offset = clamp(m.offset, 0, maxOffset)
}

// filterLinks filters the list based on the search query
func (m *mainModel) filterLinks() {
	query := strings.TrimSpace(m.textInput.Value())

	if query == "" {
		m.filtered = m.items
	} else {
		words := strings.Fields(strings.ToLower(query))
		m.filtered = make([]linkItem, 0, len(m.items))
		for i := range m.items {
			if m.items[i].matchesQuery(words) {
				m.filtered = append(m.filtered, m.items[i])
			}
		}
	}

	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
	m.adjustOffset()
}

// submit returns a command that appends link through the editor
func (m mainModel) submit(link editor.NewLink) tea.Cmd {
	ed := m.deps.Editor
	return func() tea.Msg {
		res, err := ed.Append(context.Background(), link)
		return appendedMsg{link: link, res: res, err: err}
	}
}

// handleAppended routes a submission outcome back into the form or the list
func (m mainModel) handleAppended(msg appendedMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		m.form.submitting = false
	}
	if msg.err != nil {
		if m.form != nil {
			m.form.applyError(msg.err)
		}
		return m, nil
	}

	m.phase = phaseList
	m.form = nil
	m.setLinks(registry.Parse(msg.res.Text), nil)
	m.selectPath(msg.link.Path)

	status := "Added " + msg.res.ShortURL
	if n := len(msg.res.EffectErrors); n > 0 {
		status += fmt.Sprintf(" (%d follow-up step(s) failed: %s)", n, userMessage(msg.res.EffectErrors[0]))
	}
	m.setStatus(status, len(msg.res.EffectErrors) > 0)
	return m, nil
}

// selectPath moves the cursor to the last visible item with path
func (m *mainModel) selectPath(path string) {
	for i := len(m.filtered) - 1; i >= 0; i-- {
		if m.filtered[i].entry.Path == path {
			m.cursor = i
			m.adjustOffset()
			return
		}
	}
}

// userMessage strips the error code prefix for display
func userMessage(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if e.Wrapped != nil {
			return e.Message + ": " + e.Wrapped.Error()
		}
		return e.Message
	}
	return err.Error()
}

// ============================================================================
// Rendering
// ============================================================================

// View implements tea.Model
func (m mainModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.phase {
	case phaseForm:
		return m.renderForm()
	default:
		return m.renderLinkList()
	}
}

// renderLinkList builds the browsing view
func (m mainModel) renderLinkList() string {
	width := maxInt(m.width, 80)
	height := maxInt(m.height, 24)

	header := m.renderHeader(width)
	headerLines := countLines(header)

	inputLines := 4 // divider + status + info + input
	listHeight := maxInt(height-headerLines-inputLines, 3)
	list := m.renderList(listHeight, width)
	listLines := countLines(list)

	padding := maxInt(height-headerLines-listLines-inputLines, 0)

	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(header)
	b.WriteString(list)
	b.WriteString(strings.Repeat("\n", padding))
	b.WriteString(m.renderInput(width))

	return b.String()
}

// renderHeader renders the title of the selected link's group
func (m mainModel) renderHeader(width int) string {
	b := getBuilder()
	defer putBuilder(b)

	switch {
	case m.loading:
		b.WriteString(styles.Dim.Render("Loading " + source.Describe(m.deps.Loader) + "..."))
	case m.loadErr != nil:
		b.WriteString(styles.Error.Render(truncateString("Failed to load links: "+userMessage(m.loadErr), width)))
	case m.cursor < len(m.filtered) && m.filtered[m.cursor].title != "":
		b.WriteString(styles.Title.Render(m.filtered[m.cursor].title))
	default:
		b.WriteString(styles.Dim.Render(source.Describe(m.deps.Loader)))
	}
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	return b.String()
}

// renderList renders the scrollable list of links
func (m *mainModel) renderList(maxHeight, width int) string {
	if len(m.filtered) == 0 {
		return ""
	}

	start, end := scrollWindow(m.cursor, len(m.filtered), maxHeight, &m.offset)

	pathWidth := 0
	for i := start; i < end; i++ {
		pathWidth = max(pathWidth, len(m.filtered[i].entry.Path))
	}

	b := getBuilder()
	defer putBuilder(b)
	for i := start; i < end; i++ {
		b.WriteString(m.renderListItem(m.filtered[i], i == m.cursor, pathWidth, width))
		b.WriteString("\n")
	}
	return b.String()
}

// renderListItem renders a single list row: path, URL, dimmed group title
func (m mainModel) renderListItem(item linkItem, selected bool, pathWidth, width int) string {
	pStyle, uStyle, tStyle := styles.Path, styles.URL, styles.Dim
	if selected {
		pStyle = styles.WithSelection(pStyle)
		uStyle = styles.WithSelection(uStyle)
		tStyle = styles.WithSelection(tStyle)
	}

	path := fmt.Sprintf("%-*s", pathWidth, item.entry.Path)
	urlWidth := width - pathWidth - 6
	if item.title != "" {
		urlWidth -= len(item.title) + 2
	}
	line := pStyle.Render(path) + uStyle.Render("  "+truncateString(item.entry.URL, maxInt(urlWidth, 10)))
	if item.title != "" {
		line += tStyle.Render("  " + item.title)
	}

	if selected {
		return styles.Cursor.Render("▶ ") + line
	}
	return "  " + line
}

// renderInput renders the status, help and search input at the bottom
func (m mainModel) renderInput(width int) string {
	b := getBuilder()
	defer putBuilder(b)
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	if m.status != "" {
		style := styles.Success
		if m.failed {
			style = styles.Error
		}
		b.WriteString(style.Render("  " + truncateString(m.status, width-2)))
	}
	b.WriteString("\n")
	b.WriteString(styles.Dim.Render(fmt.Sprintf("  %d/%d", len(m.filtered), len(m.items))))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Enter copy"))
	if m.deps.Editor != nil {
		b.WriteString(" • ")
		b.WriteString(styles.Dim.Render("Ctrl+N new"))
	}
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("Ctrl+R reload"))
	b.WriteString(" • ")
	b.WriteString(styles.Dim.Render("ESC exit"))
	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	return b.String()
}

// ============================================================================
// Run TUI
// ============================================================================

// getTTY returns file handles for TUI input/output
// Uses /dev/tty to bypass shell pipes and command substitution
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr // Last resort fallback
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		// Tell lipgloss to use the TTY for color detection
		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}

	return os.Stdin, os.Stdout, func() {}
}

// RunTUI launches the link picker. It returns the short URL copied to the
// clipboard, or "" when the user left without copying.
func RunTUI(deps Deps, initialQuery string) (string, error) {
	m := newMainModel(deps)
	if initialQuery != "" {
		m.textInput.SetValue(initialQuery)
	}

	ttyIn, ttyOut, cleanup := getTTY()
	RefreshStyles() // Refresh after getTTY sets up the renderer
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	finalModel, err := p.Run()
	cleanup()

	if err != nil {
		return "", err
	}
	return finalModel.(mainModel).copied, nil
}

// ============================================================================
// Helpers
// ============================================================================

// clamp restricts v to the range [minV, maxV]
func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// maxInt returns the larger of a and b
func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// countLines counts the number of lines in a string
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n")
}

// scrollWindow calculates the visible range for a scrollable list
func scrollWindow(cursor, total, height int, offset *int) (start, end int) {
	if cursor < *offset {
		*offset = cursor
	}
	if cursor >= *offset+height {
		*offset = cursor - height + 1
	}
	maxOffset := max(0, total-height)
	*offset = clamp(*offset, 0, maxOffset)

	start = *offset
	end = min(start+height, total)
	return
}

// truncateString truncates a string to maxLen terminal columns with ellipsis
func truncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	return runewidth.Truncate(s, maxLen, "...")
}
