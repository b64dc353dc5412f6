package tui

import (
	"context"
	"errors"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bryanchriswhite/hyprdock/internal/dock"
	"github.com/bryanchriswhite/hyprdock/internal/logger"
	"github.com/bryanchriswhite/hyprdock/internal/search"
)

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Presenter forwards dock changes to the terminal program. Messages sent
// before a program is attached are queued; after Detach they are dropped.
type Presenter struct {
	mu       sync.Mutex
	sender   Sender
	queued   []tea.Msg
	detached bool
	gen      uint64
}

// NewPresenter creates a presenter with no program attached.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Attach starts delivering to s, flushing queued messages first.
func (p *Presenter) Attach(s Sender) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return
	}
	p.sender = s
	for _, msg := range p.queued {
		s.Send(msg)
	}
	p.queued = nil
}

// Detach stops delivery for good.
func (p *Presenter) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sender = nil
	p.queued = nil
	p.detached = true
}

func (p *Presenter) send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.detached:
	case p.sender == nil:
		p.queued = append(p.queued, msg)
	default:
		p.sender.Send(msg)
	}
}

type indicator struct {
	p   *Presenter
	gen uint64
	idx int
}

func (i indicator) SetVisible(v bool) {
	i.p.send(runningMsg{gen: i.gen, idx: i.idx, running: v})
}

// Build implements dock.Presenter.
func (p *Presenter) Build(apps []dock.App) []dock.Indicator {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	cp := make([]dock.App, len(apps))
	copy(cp, apps)
	p.send(appsMsg{gen: gen, apps: cp})

	out := make([]dock.Indicator, len(apps))
	for i := range apps {
		out[i] = indicator{p: p, gen: gen, idx: i}
	}
	return out
}

// ReloadStyle implements dock.Presenter. An unreadable sheet keeps the
// current colors.
func (p *Presenter) ReloadStyle(path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithComponent("tui").Warn().Err(err).Str("path", path).Msg("Style sheet not loaded")
		return
	}
	p.send(themeMsg(ParseTheme(data)))
}

// SearchChanged shows the overlay state and its matches.
func (p *Presenter) SearchChanged(st search.State, results []search.Result) {
	p.send(searchMsg{state: st, results: results})
}

// StatusChanged shows the connection phase in the title.
func (p *Presenter) StatusChanged(st dock.Status) {
	p.send(statusMsg(st.Phase))
}

// Run attaches a full-screen program to p and blocks until the user quits
// or ctx ends.
func Run(ctx context.Context, p *Presenter, actions Actions) error {
	prog := tea.NewProgram(NewModel(actions), tea.WithAltScreen(), tea.WithContext(ctx))
	// Send blocks until the program's event loop is running.
	go p.Attach(prog)
	defer p.Detach()

	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
