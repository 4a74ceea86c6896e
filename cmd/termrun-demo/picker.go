package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atomicstack/termrun"
	"github.com/atomicstack/termrun/input"
	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shirou/gopsutil/v4/process"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type keyMsg struct {
	key input.KeyEvent
}

type clickMsg struct {
	y int
}

type sizeMsg struct {
	width, height int
}

type tickMsg struct {
	at time.Time
}

type processesMsg struct {
	names []string
}

type pickerModel struct {
	items    []string
	filtered []string
	query    string
	cursor   int
	width    int
	height   int
	status   string
	clock    time.Time
	loading  bool
}

// picker is a fuzzy finder over the names of running processes. Typing
// narrows the list, enter picks the highlighted entry, ctrl+r reloads.
type picker struct{}

func newPicker() *picker {
	return &picker{}
}

func (p *picker) Init() (termrun.Model, []termrun.Command) {
	model := pickerModel{
		status:  "loading processes...",
		loading: true,
		width:   80,
		height:  24,
	}
	return model, []termrun.Command{loadProcesses()}
}

func (p *picker) Update(msg termrun.Msg, model termrun.Model) (termrun.Model, []termrun.Command) {
	m := model.(pickerModel)
	switch msg := msg.(type) {
	case keyMsg:
		return p.handleKey(msg.key, m)
	case clickMsg:
		// The list starts two rows below the header.
		if row := msg.y - 2; row >= 0 && row < len(m.filtered) {
			m.cursor = row
		}
		return m, nil
	case sizeMsg:
		m.width = msg.width
		m.height = msg.height
		return m, nil
	case tickMsg:
		m.clock = msg.at
		return m, nil
	case processesMsg:
		m.items = msg.names
		m.loading = false
		m.status = fmt.Sprintf("%d processes", len(msg.names))
		m = refilter(m)
		return m, nil
	}
	return m, nil
}

func (p *picker) handleKey(key input.KeyEvent, m pickerModel) (termrun.Model, []termrun.Command) {
	switch {
	case key.Type == input.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Type == input.KeyDown:
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case key.Type == input.KeyHome:
		m.cursor = 0
	case key.Type == input.KeyEnd:
		if len(m.filtered) > 0 {
			m.cursor = len(m.filtered) - 1
		}
	case key.Type == input.KeyBackspace:
		if m.query != "" {
			runes := []rune(m.query)
			m.query = string(runes[:len(runes)-1])
			m = refilter(m)
		}
	case key.Type == input.KeyEnter:
		if m.cursor < len(m.filtered) {
			m.status = "selected " + m.filtered[m.cursor]
		}
	case key.Type == input.KeyCtrl && key.Rune == 'r':
		m.loading = true
		m.status = "reloading..."
		return m, []termrun.Command{loadProcesses()}
	case key.Type == input.KeyCtrl && key.Rune == 'u':
		m.query = ""
		m = refilter(m)
	case key.Type == input.KeyRune:
		m.query += string(key.Rune)
		m = refilter(m)
	}
	return m, nil
}

func (p *picker) View(model termrun.Model) termrun.View {
	m := model.(pickerModel)
	var b strings.Builder

	b.WriteString(titleStyle.Render("termrun process picker"))
	b.WriteString("\r\n")
	b.WriteString(promptStyle.Render("> ") + m.query)
	b.WriteString("\r\n")

	visible := m.height - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := start; i < end; i++ {
		line := m.filtered[i]
		if i == m.cursor {
			line = selectedStyle.Render(line)
		} else {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	status := m.status
	if !m.clock.IsZero() {
		status += "  " + m.clock.Format("15:04:05")
	}
	b.WriteString(statusStyle.Render(status))
	return termrun.StringView(b.String())
}

func (p *picker) Subscriptions(termrun.Model) []termrun.Subscription {
	return []termrun.Subscription{{
		Name: "clock",
		Start: func(ctx context.Context, emit func(termrun.Msg), model func() termrun.Model) error {
			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				select {
				case at := <-t.C:
					emit(tickMsg{at: at})
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		},
	}}
}

// refilter recomputes the visible list from the query and clamps the cursor.
func refilter(m pickerModel) pickerModel {
	query := strings.TrimSpace(m.query)
	if query == "" {
		m.filtered = m.items
	} else {
		ranks := fuzzy.RankFindNormalizedFold(query, m.items)
		sort.Sort(ranks)
		matched := make([]string, 0, len(ranks))
		for _, rank := range ranks {
			matched = append(matched, rank.Target)
		}
		m.filtered = matched
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

// loadProcesses lists running process names, deduplicated and sorted.
func loadProcesses() termrun.Command {
	return termrun.Command{
		Name:    "load-processes",
		Timeout: 10 * time.Second,
		Run: func(ctx context.Context) (termrun.Msg, error) {
			procs, err := process.ProcessesWithContext(ctx)
			if err != nil {
				return nil, fmt.Errorf("list processes: %w", err)
			}
			seen := make(map[string]struct{}, len(procs))
			names := make([]string, 0, len(procs))
			for _, proc := range procs {
				name, err := proc.NameWithContext(ctx)
				if err != nil || name == "" {
					continue
				}
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
			sort.Strings(names)
			return processesMsg{names: names}, nil
		},
	}
}
