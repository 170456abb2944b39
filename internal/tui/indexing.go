package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"docsift/internal/index"
)

type ingestModel struct {
	spinner        spinner.Model
	root           string
	current        string
	filesProcessed int
	filesTotal     int
	done           bool
	stats          *index.Stats
	err            error
}

func newIngestModel(root string) ingestModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return ingestModel{
		spinner: sp,
		root:    root,
	}
}

// ingestDoneMsg is sent when ingestion completes.
type ingestDoneMsg struct {
	stats *index.Stats
	err   error
}

// ingestProgressMsg is sent after each file.
type ingestProgressMsg struct {
	file           string
	filesProcessed int
	filesTotal     int
}

func runIngest(cfg Config) tea.Cmd {
	return func() tea.Msg {
		stats, err := cfg.Ingester.IngestFolder(context.Background(), cfg.IngestDir, index.FolderOptions{
			Topics:    cfg.Topics,
			Recursive: true,
			OnProgress: func(done, total int, file string) {
				if cfg.program != nil && cfg.program.p != nil {
					cfg.program.p.Send(ingestProgressMsg{
						file:           file,
						filesProcessed: done,
						filesTotal:     total,
					})
				}
			},
		})
		return ingestDoneMsg{stats: stats, err: err}
	}
}

func (m ingestModel) Update(msg tea.Msg) (ingestModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ingestDoneMsg:
		m.done = true
		m.stats = msg.stats
		m.err = msg.err
		return m, nil
	case ingestProgressMsg:
		m.current = msg.file
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ingestModel) View(width, height int) string {
	s := "\n"
	s += titleStyle.Render("  Ingesting "+m.root) + "\n\n"

	if m.done {
		if m.err != nil {
			s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
			s += dimStyle.Render("  Press Enter to search anyway, or q to quit.") + "\n"
			return s
		}
		s += successStyle.Render("  ✓ Ingestion complete!") + "\n\n"
		if st := m.stats; st != nil {
			s += fmt.Sprintf("  Papers: %d indexed, %d failed\n", st.PapersIndexed, st.PapersFailed)
			s += fmt.Sprintf("  Images: %d indexed, %d failed\n", st.ImagesIndexed, st.ImagesFailed)
			s += fmt.Sprintf("  Skipped: %d   Chunks: %d\n", st.Skipped, st.ChunksTotal)
			for _, f := range st.Failures {
				s += warnStyle.Render(fmt.Sprintf("  ✗ %s (%s)", f.Path, f.Reason)) + "\n"
			}
		}
		s += "\n"
		s += dimStyle.Render("  Press Enter to start searching") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s %s\n", m.spinner.View(), m.current)
	if m.filesTotal > 0 {
		s += fmt.Sprintf("  %d / %d files processed\n", m.filesProcessed, m.filesTotal)
	}
	s += "\n"
	s += dimStyle.Render("  Each paper is extracted, classified and embedded in turn...") + "\n"
	return s
}
