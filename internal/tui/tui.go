package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"docsift/internal/index"
	"docsift/internal/retrieval"
	"docsift/internal/store"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewWelcome ViewState = iota
	ViewIngesting
	ViewSearch
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Searcher runs the two searches the search screen offers.
type Searcher interface {
	SearchPapers(ctx context.Context, query string, k int) ([]retrieval.Result, error)
	SearchImages(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}

// Ingester ingests a folder.
type Ingester interface {
	IngestFolder(ctx context.Context, root string, opts index.FolderOptions) (*index.Stats, error)
}

// Library is the read side of a collection used for status checks.
type Library interface {
	Documents(ctx context.Context, topic string) ([]store.DocumentSummary, error)
	Count(ctx context.Context) (int, error)
	CheckModel(ctx context.Context, model string) error
}

// Config holds what the CLI layer passes in.
type Config struct {
	Searcher   Searcher
	Ingester   Ingester
	Papers     Library
	Images     Library
	TextModel  string
	ImageModel string
	PaperTopK  int
	ImageTopK  int

	// IngestDir, when set, is ingested before the search screen opens.
	IngestDir string
	Topics    []string

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	width  int
	height int

	welcome   welcomeModel
	ingesting ingestModel
	search    searchModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	return Model{
		state:  ViewWelcome,
		config: cfg,
	}
}

func (m Model) Init() tea.Cmd {
	return checkLibrary(m.config)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewSearch {
			var c tea.Cmd
			m.search, c = m.search.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.state != ViewSearch {
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.welcome.ready {
			if m.config.IngestDir != "" && m.config.Ingester != nil {
				m.state = ViewIngesting
				m.ingesting = newIngestModel(m.config.IngestDir)
				return m, tea.Batch(m.ingesting.spinner.Tick, runIngest(m.config))
			}
			return m, m.transitionToSearch()
		}

	case ViewIngesting:
		m.ingesting, cmd = m.ingesting.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter && m.ingesting.done {
			return m, m.transitionToSearch()
		}

	case ViewSearch:
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) transitionToSearch() tea.Cmd {
	m.search = newSearchModel(m.config.Searcher, m.config.PaperTopK, m.config.ImageTopK)
	m.search.initViewport(m.width, m.height)
	m.state = ViewSearch
	return nil
}

func (m Model) View() string {
	switch m.state {
	case ViewWelcome:
		return m.welcome.View(m.width, m.height)
	case ViewIngesting:
		return m.ingesting.View(m.width, m.height)
	case ViewSearch:
		return m.search.View(m.width, m.height)
	}
	return ""
}

// Run starts the TUI program.
func Run(cfg Config) error {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	_, err := p.Run()
	return err
}
