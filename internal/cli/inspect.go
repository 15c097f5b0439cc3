package cli

import (
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"qtrex/internal/engine"
	"qtrex/internal/styles"
)

type inspectMode int

const (
	modeSummary inspectMode = iota
	modeFiles
)

// fileItem is one recovered file, listed relative to the extraction root.
type fileItem struct {
	rel  string
	size int64
}

func (i fileItem) Title() string       { return i.rel }
func (i fileItem) Description() string { return fmt.Sprintf("%d bytes", i.size) }
func (i fileItem) FilterValue() string { return i.rel }

type fileDelegate struct{}

func (d fileDelegate) Height() int                              { return 1 }
func (d fileDelegate) Spacing() int                              { return 0 }
func (d fileDelegate) Update(tea.Msg, *list.Model) tea.Cmd       { return nil }
func (d fileDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	item, ok := li.(fileItem)
	if !ok {
		return
	}
	indicator := " "
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if index == m.Index() {
		indicator = ">"
		style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	}
	fmt.Fprintf(w, " %s %s  %s", indicator, style.Render(item.rel), item.Description())
}

type extractDoneMsg struct {
	results engine.Results
	err     error
}

func extractCmd(raw []byte, outDir string) tea.Cmd {
	return func() tea.Msg {
		results, err := engine.Extract(raw, outDir)
		return extractDoneMsg{results: results, err: err}
	}
}

type inspectModel struct {
	raw      []byte
	filepath string
	outDir   string

	spinner  spinner.Model
	summary  viewport.Model
	files    list.Model
	mode     inspectMode

	loading bool
	err     error
	results engine.Results

	width, height int
}

func newInspectModel(raw []byte, path, outDir string) inspectModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	sv := viewport.New()
	sv.SetWidth(80)
	sv.SetHeight(24)

	fl := list.New([]list.Item{}, fileDelegate{}, 80, 24)
	fl.SetShowStatusBar(false)
	fl.SetFilteringEnabled(true)
	fl.Title = "Recovered files"
	fl.Styles.Title = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).MarginLeft(2)

	return inspectModel{
		raw:      raw,
		filepath: path,
		outDir:   outDir,
		spinner:  s,
		summary:  sv,
		files:    fl,
		mode:     modeSummary,
		loading:  true,
		width:    80,
		height:   24,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return tea.Batch(extractCmd(m.raw, m.outDir), m.spinner.Tick)
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case extractDoneMsg:
		m.loading = false
		m.err = msg.err
		m.results = msg.results
		if msg.err == nil {
			m.populateFiles()
		}
		m.summary.SetContent(m.renderSummary())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.summary.SetWidth(msg.Width)
		m.summary.SetHeight(msg.Height - 2)
		m.files.SetWidth(msg.Width)
		m.files.SetHeight(msg.Height - 2)
		m.summary.SetContent(m.renderSummary())

	case tea.KeyMsg:
		if m.mode == modeFiles && m.files.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.mode == modeSummary {
				m.mode = modeFiles
			} else {
				m.mode = modeSummary
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeFiles:
		m.files, cmd = m.files.Update(msg)
	default:
		m.summary, cmd = m.summary.Update(msg)
	}
	return m, cmd
}

func (m inspectModel) View() string {
	if m.loading {
		return fmt.Sprintf("\n  %s recovering Qt resources from %s...\n", m.spinner.View(), m.filepath)
	}
	if m.err != nil {
		return fmt.Sprintf("\n  %s: %v\n\n  (press q to quit)\n", m.filepath, m.err)
	}
	switch m.mode {
	case modeFiles:
		return m.files.View()
	default:
		return m.summary.View()
	}
}

func (m inspectModel) renderSummary() string {
	var trees strings.Builder
	for _, report := range m.results.Trees {
		fmt.Fprintf(&trees, `
## tree %02d

**container**: %s  **arch**: %s

- name region: `+"`[0x%x, 0x%x)`"+`
- tree base: `+"`0x%x`"+` (%d entries)
- blob base: `+"`0x%x`"+`
- extracted %d files, %d directories, %d bytes to %s
`,
			report.Index, report.Container, report.Arch,
			report.NameRegion.Start, report.NameRegion.End,
			report.Tree.Base, report.Tree.Count,
			report.Blob.Start,
			report.FilesWritten, report.DirsCreated, report.BytesWritten, report.OutDir,
		)
	}

	md := fmt.Sprintf(`# qtrex recovery report

**source**: %s
**trees recovered**: %d (%d files, %d directories, %d bytes total)
%s
_press tab to browse recovered files_
`,
		m.filepath, len(m.results.Trees), m.results.FilesWritten, m.results.DirsCreated, m.results.BytesWritten,
		trees.String(),
	)
	renderer := styles.GetMarkdownRenderer(m.width)
	if renderer == nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m *inspectModel) populateFiles() {
	var items []list.Item
	filepath.WalkDir(m.outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(m.outDir, path)
		if err != nil {
			rel = path
		}
		items = append(items, fileItem{rel: rel, size: info.Size()})
		return nil
	})
	sort.Slice(items, func(i, j int) bool {
		return items[i].(fileItem).rel < items[j].(fileItem).rel
	})
	m.files.SetItems(items)
}
