package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"visarag/internal/domain"
)

// RetrieverPort is the TUI-facing subset of the retriever.
type RetrieverPort interface {
	Retrieve(ctx context.Context, query string, topK int, country string) []domain.Passage
	ListAvailableCountries() []string
}

// Model is the Bubble Tea model for the interactive retrieval console.
type Model struct {
	retriever RetrieverPort
	input     textinput.Model
	viewport  viewport.Model
	passages  []domain.Passage
	countries []string

	// countryIdx indexes countries; -1 means no filter and -2 means
	// auto-detect from the query text.
	countryIdx int
	topK       int
	status     string
	cursor     int
	ready      bool
	lastQuery  string
}

// New creates a new TUI model instance.
func New(retriever RetrieverPort, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about student visas and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if topK <= 0 {
		topK = 3
	}
	return Model{
		retriever:  retriever,
		input:      ti,
		viewport:   vp,
		countries:  retriever.ListAvailableCountries(),
		countryIdx: -2,
		topK:       topK,
		status:     "Ready. Tab cycles the country filter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + filter line
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrentPassage())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m.runQuery(q)
				m.viewport.SetContent(m.renderCurrentPassage())
				return m, nil
			}
		case "tab":
			m.cycleCountry()
			return m, nil
		case "down":
			if len(m.passages) > 0 {
				m.cursor = (m.cursor + 1) % len(m.passages)
				m.viewport.SetContent(m.renderCurrentPassage())
				return m, nil
			}
		case "up":
			if len(m.passages) > 0 {
				m.cursor = (m.cursor - 1 + len(m.passages)) % len(m.passages)
				m.viewport.SetContent(m.renderCurrentPassage())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) runQuery(q string) {
	country := m.selectedCountry()
	if m.countryIdx == -2 {
		country, _ = domain.DetectCountry(q)
	}
	m.passages = m.retriever.Retrieve(context.Background(), q, m.topK, country)
	m.cursor = 0
	m.lastQuery = q
	if len(m.passages) == 0 {
		m.status = fmt.Sprintf("No passages for %q", q)
	} else {
		m.status = fmt.Sprintf("%d passages for %q", len(m.passages), q)
	}
}

func (m *Model) cycleCountry() {
	m.countryIdx++
	if m.countryIdx >= len(m.countries) {
		m.countryIdx = -2
	}
}

func (m Model) selectedCountry() string {
	if m.countryIdx < 0 || m.countryIdx >= len(m.countries) {
		return ""
	}
	return m.countries[m.countryIdx]
}

// View renders the TUI layout and current passage.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Student Visa Search")
	filter := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Country: " + m.countryLabel())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + filter + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) countryLabel() string {
	switch m.countryIdx {
	case -2:
		return "auto"
	case -1:
		return "all"
	default:
		return m.selectedCountry()
	}
}

func (m Model) renderCurrentPassage() string {
	if len(m.passages) == 0 {
		return "No passages yet."
	}
	p := m.passages[m.cursor]
	title := fmt.Sprintf("Passage %d/%d  score=%.3f", m.cursor+1, len(m.passages), p.Score)
	meta := p.Title
	if p.Country != "" {
		meta += "  [" + p.Country + "]"
	}
	return title + "\n" + metaStyle.Render(meta) + "\n\n" + p.Content
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
