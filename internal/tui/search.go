package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"docsift/internal/retrieval"
)

type searchMode int

const (
	modePapers searchMode = iota
	modeImages
)

func (m searchMode) String() string {
	if m == modeImages {
		return "images"
	}
	return "papers"
}

type searchModel struct {
	viewport    viewport.Model
	input       textinput.Model
	spinner     spinner.Model
	renderer    *glamour.TermRenderer
	searcher    Searcher
	mode        searchMode
	paperK      int
	imageK      int
	searching   bool
	query       string
	results     []retrieval.Result
	cursor      int
	err         error
	width       int
	height      int
	initialized bool
}

// searchDoneMsg is sent when a query completes.
type searchDoneMsg struct {
	mode    searchMode
	query   string
	results []retrieval.Result
	err     error
}

func newSearchModel(s Searcher, paperK, imageK int) searchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle

	ti := textinput.New()
	ti.Placeholder = "Describe what you are looking for..."
	ti.CharLimit = 500
	ti.Focus()

	if paperK <= 0 {
		paperK = retrieval.DefaultPanelTopK
	}
	if imageK <= 0 {
		imageK = retrieval.DefaultImageTopK
	}
	return searchModel{
		spinner:  sp,
		input:    ti,
		searcher: s,
		paperK:   paperK,
		imageK:   imageK,
	}
}

func (m *searchModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: tabs (2) + input (1) + results list + preview viewport + status bar (1).
	listHeight := max(m.paperK, m.imageK) + 1
	vpHeight := height - listHeight - 5
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.viewport.SetContent(dimStyle.Render("Type a query and press Enter. Tab switches between papers and images."))

	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}

	m.initialized = true
}

func runSearch(s Searcher, mode searchMode, query string, k int) tea.Cmd {
	return func() tea.Msg {
		var (
			results []retrieval.Result
			err     error
		)
		if mode == modeImages {
			results, err = s.SearchImages(context.Background(), query, k)
		} else {
			results, err = s.SearchPapers(context.Background(), query, k)
		}
		return searchDoneMsg{mode: mode, query: query, results: results, err: err}
	}
}

func (m searchModel) Update(msg tea.Msg) (searchModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		m.refreshPreview()
		return m, nil

	case searchDoneMsg:
		if msg.mode != m.mode || msg.query != m.query {
			return m, nil // stale
		}
		m.searching = false
		m.results = msg.results
		m.err = msg.err
		m.cursor = 0
		m.refreshPreview()
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyTab:
			if m.mode == modePapers {
				m.mode = modeImages
			} else {
				m.mode = modePapers
			}
			m.results, m.err, m.cursor = nil, nil, 0
			if m.query != "" {
				return m, m.startSearch()
			}
			m.refreshPreview()
			return m, nil
		case tea.KeyUp:
			if m.cursor > 0 {
				m.cursor--
				m.refreshPreview()
			}
			return m, nil
		case tea.KeyDown:
			if m.cursor < len(m.results)-1 {
				m.cursor++
				m.refreshPreview()
			}
			return m, nil
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.searching {
				return m, nil
			}
			m.query = query
			return m, m.startSearch()
		}
	}

	if !m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *searchModel) startSearch() tea.Cmd {
	m.searching = true
	m.err = nil
	k := m.paperK
	if m.mode == modeImages {
		k = m.imageK
	}
	return tea.Batch(m.spinner.Tick, runSearch(m.searcher, m.mode, m.query, k))
}

func (m *searchModel) refreshPreview() {
	if !m.initialized {
		return
	}
	switch {
	case m.err != nil:
		m.viewport.SetContent(errorStyle.Render("Error: " + m.err.Error()))
	case len(m.results) == 0 && m.query != "":
		m.viewport.SetContent(dimStyle.Render("No results."))
	case len(m.results) > 0:
		m.viewport.SetContent(m.renderMarkdown(previewMarkdown(m.results[m.cursor], m.mode)))
	}
	m.viewport.GotoTop()
}

func (m searchModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return listItemStyle.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return listItemStyle.Render(content)
	}
	return strings.TrimRight(rendered, "\n")
}

// previewMarkdown describes one hit for the preview pane.
func previewMarkdown(r retrieval.Result, mode searchMode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", r.Filename)
	if mode == modeImages {
		fmt.Fprintf(&sb, "**Score:** %.3f  \n**Path:** `%s`\n", r.Score, r.Path)
		return sb.String()
	}
	fmt.Fprintf(&sb, "**Page:** %d  \n**Topic:** %s  \n**Score:** %.3f  \n**Path:** `%s`\n\n",
		r.PageNumber, r.Topic, r.Score, r.Path)
	if r.IsSummary {
		sb.WriteString("*Summary match*\n\n")
	}
	for _, line := range strings.Split(r.Text, "\n") {
		sb.WriteString("> " + line + "\n")
	}
	return sb.String()
}

// resultLine is one row of the result list.
func resultLine(i int, r retrieval.Result, mode searchMode) string {
	line := fmt.Sprintf("%d. %s %s", i+1, scoreStyle.Render(fmt.Sprintf("[%.3f]", r.Score)), r.Filename)
	if mode == modePapers {
		line += dimStyle.Render(fmt.Sprintf("  p.%d  %s", r.PageNumber, r.Topic))
		if r.IsSummary {
			line += " " + summaryTagStyle.Render("[SUMMARY]")
		}
	}
	return line
}

func (m searchModel) renderTabs() string {
	papers, images := inactiveTabStyle, inactiveTabStyle
	if m.mode == modePapers {
		papers = activeTabStyle
	} else {
		images = activeTabStyle
	}
	return " " + papers.Render(fmt.Sprintf("Papers (top %d)", m.paperK)) + "   " +
		images.Render(fmt.Sprintf("Images (top %d)", m.imageK))
}

func (m searchModel) renderList() string {
	if m.searching {
		return m.spinner.View() + " " + dimStyle.Render("Searching "+m.mode.String()+"...")
	}
	var sb strings.Builder
	for i, r := range m.results {
		line := resultLine(i, r, m.mode)
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m searchModel) View(width, height int) string {
	if !m.initialized {
		return ""
	}

	statusText := "idle"
	if m.searching {
		statusText = "searching..."
	} else if m.query != "" {
		statusText = fmt.Sprintf("%d results for %q", len(m.results), m.query)
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(fmt.Sprintf(" docsift • %s • %s", m.mode, statusText))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderTabs(),
		m.input.View(),
		m.renderList(),
		m.viewport.View(),
		statusBar,
		helpStyle.Render(" tab: papers/images • ↑/↓: select • enter: search • esc: quit"),
	)
}
