package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/modload/internal/module"
)

// EventMsg carries a loader event into the program.
type EventMsg module.Event

// DoneMsg tells the program every requested load has returned.
type DoneMsg struct{}

// Feed is a buffered channel observer. Events are dropped rather than
// blocking the loader when the buffer is full; DoneMsg still settles the view.
type Feed chan module.Event

// NewFeed returns a Feed with room for size events.
func NewFeed(size int) Feed {
	if size <= 0 {
		size = 256
	}
	return make(Feed, size)
}

// Observe implements module.Observer.
func (f Feed) Observe(e module.Event) {
	select {
	case f <- e:
	default:
	}
}

type rowState string

const (
	rowPending  rowState = "pending"
	rowLoaded   rowState = "loaded"
	rowReady    rowState = "ready"
	rowFailed   rowState = "failed"
	rowExecFail rowState = "exec-failed"
)

type row struct {
	id       string
	key      string
	state    rowState
	location string
	misses   int
	err      string
}

func (r row) settled() bool {
	return r.state == rowReady || r.state == rowFailed || r.state == rowExecFail
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	idStyle      = lipgloss.NewStyle().Bold(true)
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Progress lists the requested identifiers with a spinner until each one
// settles.
type Progress struct {
	rows    []row
	byKey   map[string][]int
	feed    <-chan module.Event
	spinner spinner.Model
	done    bool
	drained int
}

// NewProgress builds the model. key maps an identifier to its registry key so
// events can be matched to rows.
func NewProgress(ids []string, key func(string) string, feed <-chan module.Event) *Progress {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle
	p := &Progress{byKey: map[string][]int{}, feed: feed, spinner: sp}
	for i, id := range ids {
		k := id
		if key != nil {
			k = key(id)
		}
		p.rows = append(p.rows, row{id: id, key: k, state: rowPending})
		p.byKey[k] = append(p.byKey[k], i)
	}
	return p
}

func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, p.waitForEvent())
}

func (p *Progress) waitForEvent() tea.Cmd {
	if p.feed == nil {
		return nil
	}
	feed := p.feed
	return func() tea.Msg {
		e, ok := <-feed
		if !ok {
			return DoneMsg{}
		}
		return EventMsg(e)
	}
}

func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return p, tea.Quit
		}
	case EventMsg:
		p.apply(module.Event(msg))
		if p.allSettled() {
			p.done = true
			return p, tea.Quit
		}
		return p, p.waitForEvent()
	case DoneMsg:
		p.done = true
		return p, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p *Progress) apply(e module.Event) {
	if e.Kind == module.EventGroupDrained {
		p.drained++
		return
	}
	for _, i := range p.byKey[e.Key] {
		r := &p.rows[i]
		if e.Location != "" {
			r.location = e.Location
		}
		switch e.Kind {
		case module.EventCandidateMiss:
			r.misses++
		case module.EventLoaded:
			if r.state == rowPending {
				r.state = rowLoaded
			}
		case module.EventReady:
			r.state = rowReady
			r.err = ""
		case module.EventFailed:
			r.state = rowFailed
		case module.EventExecutionFailed:
			r.state = rowExecFail
		}
		if e.Err != nil && e.Kind != module.EventCandidateMiss {
			r.err = e.Err.Error()
		}
	}
}

func (p *Progress) allSettled() bool {
	for _, r := range p.rows {
		if !r.settled() {
			return false
		}
	}
	return len(p.rows) > 0
}

// Done reports whether the program finished on its own.
func (p *Progress) Done() bool {
	return p.done
}

func (p *Progress) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("⬡ MODLOAD"))
	b.WriteString("\n")
	for _, r := range p.rows {
		b.WriteString(p.renderRow(r))
		b.WriteString("\n")
	}
	footer := fmt.Sprintf("%d/%d settled", p.settledCount(), len(p.rows))
	if !p.done {
		footer += " · q to quit"
	}
	b.WriteString(dimStyle.Render(footer))
	b.WriteString("\n")
	return b.String()
}

func (p *Progress) renderRow(r row) string {
	var marker, state string
	switch r.state {
	case rowReady:
		marker, state = readyStyle.Render("✓"), readyStyle.Render(string(r.state))
	case rowFailed, rowExecFail:
		marker, state = failedStyle.Render("✗"), failedStyle.Render(string(r.state))
	default:
		marker, state = p.spinner.View(), pendingStyle.Render(string(r.state))
	}
	line := fmt.Sprintf("%s %s %s", marker, idStyle.Render(r.id), state)
	if r.location != "" {
		line += dimStyle.Render(" " + r.location)
	}
	if r.misses > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d missed)", r.misses))
	}
	if r.err != "" && r.state != rowReady {
		line += "\n    " + failedStyle.Render(r.err)
	}
	return line
}

func (p *Progress) settledCount() int {
	n := 0
	for _, r := range p.rows {
		if r.settled() {
			n++
		}
	}
	return n
}
