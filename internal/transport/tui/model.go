// Package tui is the interactive terminal search loop.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
)

// DefaultTopK is the number of results shown per query.
const DefaultTopK = 5

// Searcher is the TUI-facing subset of the search service.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]result.Result, error)
}

// searchDoneMsg carries the outcome of one search back to Update.
type searchDoneMsg struct {
	query   string
	results []result.Result
	err     error
	took    time.Duration
}

// Model is the Bubble Tea model for the search loop.
type Model struct {
	searcher  Searcher
	topK      int
	timeout   time.Duration
	input     textinput.Model
	viewport  viewport.Model
	results   []result.Result
	summary   string
	status    string
	cursor    int
	ready     bool
	searching bool
}

// New creates a TUI model. summary is shown under the header.
func New(searcher Searcher, topK int, timeout time.Duration, summary string) Model {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "e.g. Machine Learning, Python (type exit to quit)"
	ti.Focus()
	ti.CharLimit = 4096
	return Model{
		searcher: searcher,
		topK:     topK,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Type a query and press Enter.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and search completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case searchDoneMsg:
		m.searching = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.results = msg.results
			m.cursor = 0
			m.status = fmt.Sprintf("%d results for %q in %s", len(msg.results), msg.query, msg.took.Round(time.Millisecond))
		}
		m.viewport.SetContent(m.renderResults())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if strings.EqualFold(q, "exit") {
				return m, tea.Quit
			}
			if q == "" || m.searching {
				return m, nil
			}
			m.searching = true
			m.status = fmt.Sprintf("Searching for %q...", q)
			m.input.SetValue("")
			return m, m.search(q)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// search runs the query off the UI goroutine.
func (m Model) search(query string) tea.Cmd {
	searcher, topK, timeout := m.searcher, m.topK, m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		res, err := searcher.Search(ctx, query, topK)
		return searchDoneMsg{query: query, results: res, err: err, took: time.Since(start)}
	}
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Course Search")
	summary := summaryStyle.Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	for i := range m.results {
		b.WriteString(renderResult(&m.results[i], i == m.cursor))
		if i < len(m.results)-1 {
			b.WriteString("\n" + strings.Repeat("-", 50) + "\n")
		}
	}
	return b.String()
}

func renderResult(r *result.Result, selected bool) string {
	c := r.Course()
	title := fmt.Sprintf("%d. %s", r.Rank(), c.Title())
	if selected {
		title = selectedStyle.Render(title)
	}
	desc := c.Description()
	if desc == "" {
		desc = "No description available."
	}
	return fmt.Sprintf("%s\n   %s\n   %s\n   %s",
		title,
		desc,
		linkStyle.Render(c.Link()),
		scoreStyle.Render(fmt.Sprintf("Relevance: %.2f%%", r.Score()*100)),
	)
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	linkStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true)
	scoreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Run starts the program on the terminal and blocks until the user quits.
func Run(m Model) error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
