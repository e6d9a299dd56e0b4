// internal/tui/app.go
//
// This is the terminal UI for the collation client.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the witness editors, the result panes and queued notifications
// 2. Update: the only place session state changes
// 3. View: renders the model to a string
//
// Every collation request runs as a tea.Cmd and reports back through a
// resultMsg, so results are always applied on the Update goroutine.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/collate/internal/alignment"
	"github.com/kingrea/collate/internal/collate"
	"github.com/kingrea/collate/internal/panel"
	"github.com/kingrea/collate/internal/session"
)

// focusArea is the part of the screen receiving keys
type focusArea int

const (
	focusWitnesses focusArea = iota
	focusResults
)

const (
	editorHeight  = 3
	logLines      = 6
	modalHeight   = 12
	defaultWidth  = 100
	defaultHeight = 32
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	headingStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801")).Underline(true)
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	focusBoxStyle  = boxStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	modalStyle     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#FF6B6B")).Padding(1, 2)
)

// resultMsg carries one finished representation request back to Update.
type resultMsg struct {
	result collate.Result
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithContext bounds in-flight requests; cancel it to abandon them on quit.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithInitialPreset loads and submits preset index when the program starts.
func WithInitialPreset(index int) AppOption {
	return func(a *App) {
		a.initialPreset = index
	}
}

// App is the main application model.
type App struct {
	session *session.Session
	ctx     context.Context

	editors []textarea.Model
	active  int
	focus   focusArea

	panel   panel.ID
	results viewport.Model

	preset        int
	initialPreset int
	pending       int
	modals        []string
	modalBody     viewport.Model
	statusMsg     string

	width  int
	height int
}

// NewApp builds the UI around an existing session.
func NewApp(sess *session.Session, opts ...AppOption) *App {
	a := &App{
		session:       sess,
		ctx:           context.Background(),
		panel:         panel.Table,
		results:       viewport.New(60, 12),
		modalBody:     viewport.New(60, modalHeight),
		preset:        session.NoPreset,
		initialPreset: session.NoPreset,
		statusMsg:     "Type witnesses, then ctrl+s to collate.",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.rebuildEditors()
	a.focusEditor(0)
	a.refreshResults()
	return a
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	if a.initialPreset == session.NoPreset {
		return nil
	}
	return a.selectPreset(a.initialPreset)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case resultMsg:
		a.handleResult(msg.result)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.focus == focusResults {
		var cmd tea.Cmd
		a.results, cmd = a.results.Update(msg)
		return a, cmd
	}
	return a, a.updateEditor(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}
	// notifications are modal; results keep arriving underneath
	if len(a.modals) > 0 {
		switch key {
		case "enter", "esc":
			a.modals = a.modals[1:]
			if len(a.modals) > 0 {
				a.loadModal()
			}
			return a, nil
		}
		var cmd tea.Cmd
		a.modalBody, cmd = a.modalBody.Update(msg)
		return a, cmd
	}

	switch key {
	case "ctrl+s":
		return a, a.submit()
	case "ctrl+n":
		return a, a.addWitness()
	case "ctrl+e":
		return a, a.selectPreset(a.nextPreset())
	case "ctrl+x":
		return a, a.selectPreset(session.NoPreset)
	case "ctrl+o":
		a.export()
		return a, nil
	case "tab":
		return a, a.cycleFocus(1)
	case "shift+tab":
		return a, a.cycleFocus(-1)
	}

	if a.focus == focusResults {
		switch key {
		case "q":
			return a, tea.Quit
		case "1", "2", "3", "4", "5":
			a.showPanel(panel.IDs()[int(key[0]-'1')])
			return a, nil
		case "left", "h":
			a.showPanel(a.offsetPanel(-1))
			return a, nil
		case "right", "l":
			a.showPanel(a.offsetPanel(1))
			return a, nil
		}
		var cmd tea.Cmd
		a.results, cmd = a.results.Update(msg)
		return a, cmd
	}
	return a, a.updateEditor(msg)
}

func (a *App) updateEditor(msg tea.Msg) tea.Cmd {
	if a.focus != focusWitnesses || a.active >= len(a.editors) {
		return nil
	}
	var cmd tea.Cmd
	a.editors[a.active], cmd = a.editors[a.active].Update(msg)
	_ = a.session.Store.Set(a.active, a.editors[a.active].Value())
	return cmd
}

func (a *App) submit() tea.Cmd {
	sub, err := a.session.Submit()
	if err != nil {
		a.notify(err)
		return nil
	}
	if sub == nil {
		a.statusMsg = "Enter at least two witnesses to collate."
		return nil
	}
	return a.dispatch(sub)
}

// dispatch issues every task of sub at once; each reports back as a
// resultMsg tagged with its generation.
func (a *App) dispatch(sub *collate.Submission) tea.Cmd {
	a.pending = len(sub.Tasks)
	a.statusMsg = fmt.Sprintf("Collating %d witnesses…", len(sub.Request.Witnesses))
	a.refreshResults()
	ctx := a.ctx
	cmds := make([]tea.Cmd, 0, len(sub.Tasks))
	for _, task := range sub.Tasks {
		cmds = append(cmds, func() tea.Msg {
			return resultMsg{result: task.Run(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (a *App) handleResult(res collate.Result) {
	current := res.Generation == a.session.Dispatcher.Generation()
	if err := a.session.Deliver(res); err != nil {
		a.notify(err)
	}
	if current && a.pending > 0 {
		a.pending--
		if a.pending == 0 {
			a.statusMsg = "Collation finished."
		}
	}
	a.refreshResults()
}

// notify queues a failure with its full payload; long payloads scroll.
func (a *App) notify(err error) {
	a.modals = append(a.modals, sanitizeBlock(err.Error()))
	if len(a.modals) == 1 {
		a.loadModal()
	}
}

func (a *App) modalWidth() int {
	return min(72, max(30, a.viewWidth()-8))
}

// loadModal puts the front notification into the scrollable body.
func (a *App) loadModal() {
	// modalStyle pads two columns on each side
	width := a.modalWidth() - 4
	a.modalBody.Width = width
	a.modalBody.Height = min(modalHeight, max(3, a.viewHeight()-12))
	a.modalBody.SetContent(lipgloss.NewStyle().Width(width).Render(a.modals[0]))
	a.modalBody.GotoTop()
}

func (a *App) addWitness() tea.Cmd {
	a.session.Store.Add()
	a.editors = append(a.editors, a.newEditor(len(a.editors), ""))
	return a.focusEditor(len(a.editors) - 1)
}

// nextPreset cycles through every preset and then back to none.
func (a *App) nextPreset() int {
	next := a.preset + 1
	if next >= len(a.session.Presets) {
		return session.NoPreset
	}
	return next
}

func (a *App) selectPreset(index int) tea.Cmd {
	sub, err := a.session.SelectPreset(index)
	if err != nil {
		a.notify(err)
		return nil
	}
	a.preset = index
	a.pending = 0
	a.rebuildEditors()

	var focusCmd tea.Cmd
	if idx := a.session.FocusIndex(); idx >= 0 {
		focusCmd = a.focusEditor(idx)
	} else {
		a.focusResultsPane()
	}

	if index == session.NoPreset {
		a.statusMsg = "Witnesses reset."
	} else {
		a.statusMsg = fmt.Sprintf("Example %d: %s", index+1, a.session.Presets[index].Title())
	}
	if sub == nil {
		a.refreshResults()
		return focusCmd
	}
	return tea.Batch(focusCmd, a.dispatch(sub))
}

func (a *App) export() {
	dir, files, err := a.session.Export()
	if err != nil {
		a.statusMsg = fmt.Sprintf("Export failed: %v", err)
		return
	}
	a.statusMsg = fmt.Sprintf("Exported %d panels to %s", len(files), dir)
}

func (a *App) cycleFocus(step int) tea.Cmd {
	slots := len(a.editors) + 1
	current := a.active
	if a.focus == focusResults {
		current = len(a.editors)
	}
	next := ((current+step)%slots + slots) % slots
	if next == len(a.editors) {
		a.focusResultsPane()
		return nil
	}
	return a.focusEditor(next)
}

func (a *App) focusEditor(index int) tea.Cmd {
	if len(a.editors) == 0 {
		return nil
	}
	index = min(max(index, 0), len(a.editors)-1)
	for i := range a.editors {
		a.editors[i].Blur()
	}
	a.active = index
	a.focus = focusWitnesses
	return a.editors[index].Focus()
}

func (a *App) focusResultsPane() {
	for i := range a.editors {
		a.editors[i].Blur()
	}
	a.focus = focusResults
}

func (a *App) showPanel(id panel.ID) {
	a.panel = id
	a.refreshResults()
	a.results.GotoTop()
}

func (a *App) offsetPanel(step int) panel.ID {
	ids := panel.IDs()
	for i, id := range ids {
		if id == a.panel {
			return ids[((i+step)%len(ids)+len(ids))%len(ids)]
		}
	}
	return ids[0]
}

func (a *App) rebuildEditors() {
	entries := a.session.Store.Entries()
	a.editors = make([]textarea.Model, len(entries))
	for i, content := range entries {
		a.editors[i] = a.newEditor(i, content)
	}
	a.active = 0
}

func (a *App) newEditor(index int, content string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = fmt.Sprintf("Witness %d", index+1)
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	_ = ta.Cursor.SetMode(cursor.CursorStatic)
	ta.SetWidth(a.editorWidth())
	ta.SetHeight(editorHeight)
	ta.SetValue(content)
	return ta
}

func (a *App) layout() {
	for i := range a.editors {
		a.editors[i].SetWidth(a.editorWidth())
	}
	a.results.Width = a.resultsWidth()
	a.results.Height = max(6, a.viewHeight()-14)
	a.refreshResults()
	if len(a.modals) > 0 {
		a.loadModal()
	}
}

func (a *App) viewWidth() int {
	if a.width <= 0 {
		return defaultWidth
	}
	return a.width
}

func (a *App) viewHeight() int {
	if a.height <= 0 {
		return defaultHeight
	}
	return a.height
}

func (a *App) stacked() bool {
	return a.viewWidth() < 90
}

func (a *App) leftWidth() int {
	if a.stacked() {
		return a.viewWidth() - 2
	}
	return a.viewWidth() * 2 / 5
}

func (a *App) rightWidth() int {
	if a.stacked() {
		return a.viewWidth() - 2
	}
	return a.viewWidth() - a.leftWidth() - 4
}

func (a *App) editorWidth() int {
	return max(20, a.leftWidth()-4)
}

func (a *App) resultsWidth() int {
	return max(20, a.rightWidth()-4)
}

func (a *App) refreshResults() {
	a.results.SetContent(a.renderPanel(a.resultsWidth()))
}

func (a *App) renderPanel(width int) string {
	contents := a.session.Panels.Contents(a.panel)
	if len(contents) == 0 {
		if a.pending > 0 {
			return mutedStyle.Render("Waiting for the engine…")
		}
		return mutedStyle.Render("No results. Press ctrl+s to collate.")
	}
	parts := make([]string, 0, len(contents))
	for _, content := range contents {
		switch content.Kind {
		case panel.KindTable:
			parts = append(parts, alignment.Terminal(content.Table, width)+"\n\n"+alignment.Legend())
		case panel.KindGraphic:
			note := mutedStyle.Render(fmt.Sprintf("%s document, %d bytes. Export with ctrl+o to view it.", content.MediaType, len(content.Text)))
			parts = append(parts, note+"\n\n"+sanitizeBlock(content.Text))
		default:
			parts = append(parts, sanitizeBlock(content.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// sanitizeBlock cleans engine text for the terminal while keeping its line
// structure.
func sanitizeBlock(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = alignment.Sanitize(line)
	}
	return strings.Join(lines, "\n")
}

// View renders the whole screen.
func (a *App) View() string {
	if len(a.modals) > 0 {
		return a.renderModal()
	}

	endpoint := ""
	if a.session.Config != nil {
		endpoint = mutedStyle.Render(" · " + a.session.Config.BaseURL())
	}
	header := titleStyle.Render("⬡ COLLATE") + endpoint

	left := a.renderWitnesses()
	right := a.renderResults()
	var body string
	if a.stacked() {
		body = lipgloss.JoinVertical(lipgloss.Left, left, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	}

	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.JoinVertical(lipgloss.Left,
		mutedStyle.Render(a.statusMsg),
		mutedStyle.Render("ctrl+s collate · ctrl+n add witness · ctrl+e examples · ctrl+x reset · ctrl+o export · tab focus · 1-5 panels · ctrl+c quit"),
	)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) renderWitnesses() string {
	blocks := make([]string, 0, len(a.editors)*2)
	for i := range a.editors {
		label := mutedStyle.Render(fmt.Sprintf("Witness %d", i+1))
		if a.focus == focusWitnesses && i == a.active {
			label = headingStyle.Render(fmt.Sprintf("Witness %d", i+1))
		}
		blocks = append(blocks, label, a.editors[i].View())
	}
	style := boxStyle
	if a.focus == focusWitnesses {
		style = focusBoxStyle
	}
	return style.Width(max(20, a.leftWidth())).Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}

func (a *App) renderResults() string {
	tabs := make([]string, 0, len(panel.IDs()))
	for i, id := range panel.IDs() {
		label := fmt.Sprintf("%d %s", i+1, id.Title())
		if a.session.Panels.Populated(id) {
			label += " •"
		}
		if id == a.panel {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	status := ""
	if a.pending > 0 {
		status = mutedStyle.Render(fmt.Sprintf("%d of %d representations pending", a.pending, len(collate.Representations())))
	}
	style := boxStyle
	if a.focus == focusResults {
		style = focusBoxStyle
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(tabs, "  "),
		headingStyle.Render(a.panel.Title()),
		a.results.View(),
		status,
	)
	return style.Width(max(20, a.rightWidth())).Render(content)
}

func (a *App) renderLogPanel() string {
	book := a.session.Logbook
	if book == nil {
		return ""
	}
	lines, total := book.Tail(logLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(book.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := headingStyle.Render(fmt.Sprintf("LOG · %s (%d entries)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(sanitizeBlock(strings.Join(lines, "\n")))
	return boxStyle.Width(max(20, a.viewWidth()-2)).Render(head + "\n" + body)
}

func (a *App) renderModal() string {
	more := ""
	if n := len(a.modals) - 1; n > 0 {
		more = fmt.Sprintf(" (%d more)", n)
	}
	hint := "enter or esc to dismiss" + more
	if a.modalBody.TotalLineCount() > a.modalBody.Height {
		hint = "↑/↓ scroll · " + hint
	}
	box := modalStyle.Width(a.modalWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Collation failed"),
		"",
		a.modalBody.View(),
		"",
		mutedStyle.Render(hint),
	))
	return lipgloss.Place(a.viewWidth(), a.viewHeight(), lipgloss.Center, lipgloss.Center, box)
}
