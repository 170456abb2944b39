package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

type libraryStatus int

const (
	libraryEmpty libraryStatus = iota
	libraryReady
	libraryStale
)

type welcomeModel struct {
	status   libraryStatus
	papers   int
	chunks   int
	images   int
	warnings []string
	err      error
	ready    bool // true once the check has completed
}

// checkLibraryMsg is sent after counting the collections.
type checkLibraryMsg struct {
	status   libraryStatus
	papers   int
	chunks   int
	images   int
	warnings []string
	err      error
}

func checkLibrary(cfg Config) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var out checkLibraryMsg

		if cfg.Papers != nil {
			docs, err := cfg.Papers.Documents(ctx, "")
			if err != nil {
				return checkLibraryMsg{err: err}
			}
			out.papers = len(docs)
			for _, d := range docs {
				out.chunks += d.Chunks
			}
			if err := cfg.Papers.CheckModel(ctx, cfg.TextModel); err != nil {
				out.warnings = append(out.warnings, err.Error())
			}
		}
		if cfg.Images != nil {
			n, err := cfg.Images.Count(ctx)
			if err != nil {
				return checkLibraryMsg{err: err}
			}
			out.images = n
			if err := cfg.Images.CheckModel(ctx, cfg.ImageModel); err != nil {
				out.warnings = append(out.warnings, err.Error())
			}
		}

		switch {
		case len(out.warnings) > 0:
			out.status = libraryStale
		case out.papers+out.images > 0:
			out.status = libraryReady
		default:
			out.status = libraryEmpty
		}
		return out
	}
}

func (m welcomeModel) Update(msg tea.Msg) (welcomeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case checkLibraryMsg:
		m.status = msg.status
		m.papers, m.chunks, m.images = msg.papers, msg.chunks, msg.images
		m.warnings = msg.warnings
		m.err = msg.err
		m.ready = true
	}
	return m, nil
}

func (m welcomeModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  ◆ docsift") + "\n"
	s += subtitleStyle.Render("  Semantic search over your papers and images") + "\n\n"

	if !m.ready {
		s += dimStyle.Render("  Checking library...") + "\n"
		return s
	}
	if m.err != nil {
		s += errorStyle.Render("  Error: "+m.err.Error()) + "\n\n"
		s += dimStyle.Render("  Press q to quit") + "\n"
		return s
	}

	switch m.status {
	case libraryReady:
		s += successStyle.Render("  ✓ Library ready") + "\n"
	case libraryEmpty:
		s += warnStyle.Render("  ✗ Library is empty") + "\n"
		s += dimStyle.Render("    Run 'docsift ingest <folder>' to add papers and images") + "\n"
	case libraryStale:
		s += warnStyle.Render("  ⚠ Embedding model changed") + "\n"
		for _, w := range m.warnings {
			s += dimStyle.Render("    "+w) + "\n"
		}
	}
	s += fmt.Sprintf("  Papers: %d (%d chunks)\n", m.papers, m.chunks)
	s += fmt.Sprintf("  Images: %d\n", m.images)

	s += "\n"
	s += dimStyle.Render("  Press Enter to continue") + "\n"
	return s
}
