package preview

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/framefx/internal/chain"
	"github.com/ivlev/framefx/internal/effects"
	"github.com/ivlev/framefx/internal/engine"
	"github.com/ivlev/framefx/internal/source"
)

// chromeRows is the number of text rows used around the frame.
const chromeRows = 6

// Options configure the preview surface.
type Options struct {
	FPS int
	DPI int
	// Title is shown in the header, usually the input path.
	Title string
}

// Model is the Bubbletea model for the live preview.
type Model struct {
	ctx  context.Context
	eng  *engine.Engine
	src  source.Source
	opts Options
	term *Terminal

	tick   int
	offset int
	paused bool

	width  int
	height int

	frame    string
	err      error
	waiting  string // palette being generated
	spinner  spinner.Model
	quitting bool

	pending tea.Cmd
}

// New creates a preview model. The tick counter starts at 0 and advances once
// per rendered frame.
func New(ctx context.Context, eng *engine.Engine, src source.Source, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle
	m := Model{
		ctx:     ctx,
		eng:     eng,
		src:     src,
		opts:    opts,
		term:    NewTerminal(),
		width:   80,
		height:  24,
		spinner: s,
	}
	m.pending = m.awaitPalette()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.opts.FPS), tea.SetWindowTitle("framefx")}
	if m.pending != nil {
		cmds = append(cmds, m.pending, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if isQuit(msg) {
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}
		switch msg.String() {
		case " ", "space":
			m.paused = !m.paused
			return m, nil
		case "left", "h":
			m.offset--
			m.render()
			return m, nil
		case "right", "l":
			m.offset++
			m.render()
			return m, nil
		}
		if i, ok := toggleIndex(msg); ok {
			return m.toggle(i)
		}
		return m, nil

	case tickMsg:
		if !m.paused {
			m.render()
			m.tick++
		}
		return m, tickCmd(m.opts.FPS)

	case paletteReadyMsg:
		if msg.name == m.waiting {
			m.waiting = ""
		}
		if msg.err != nil {
			m.err = fmt.Errorf("emoji palette %s: %w", msg.name, msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		if m.waiting == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.render()
		return m, nil
	}
	return m, nil
}

// toggle flips the active flag of the effect at index i.
func (m Model) toggle(i int) (tea.Model, tea.Cmd) {
	items := m.eng.Chain.Effects()
	if i >= len(items) {
		return m, nil
	}
	active := !items[i].Active
	if err := m.eng.Chain.UpdateEffect(items[i].ID, chain.Patch{Active: &active}); err != nil {
		m.err = err
		return m, nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "toggle",
		"effect":   items[i].ID,
		"type":     items[i].Type,
		"active":   active,
	}).Debug("effect toggled")
	m.render()
	if cmd := m.awaitPalette(); cmd != nil {
		return m, tea.Batch(cmd, m.spinner.Tick)
	}
	return m, nil
}

// awaitPalette starts waiting for the emoji palette of the active style, or
// returns nil when no emoji style is active or its palette is ready.
func (m *Model) awaitPalette() tea.Cmd {
	style, _ := chain.ActiveStyle(m.eng.Chain.Effects())
	if style == nil {
		return nil
	}
	st, ok := effects.AsStyle(style.Effect())
	if !ok || st.Kind != effects.Emoji {
		return nil
	}
	palettes := m.eng.Renderer().Palettes
	if palettes.Request(st.Palette).Ready() {
		return nil
	}
	m.waiting = st.Palette
	ctx, name := m.ctx, st.Palette
	return func() tea.Msg {
		_, err := palettes.Await(ctx, name)
		return paletteReadyMsg{name: name, err: err}
	}
}

// frameSize returns the text area available for the frame.
func (m Model) frameSize() (cols, rows int) {
	cols = max(m.width, 1)
	rows = max(m.height-chromeRows, 1)
	return cols, rows
}

// render draws the current tick into m.frame.
func (m *Model) render() {
	cols, rows := m.frameSize()
	in, err := source.Frame(m.src, m.sourceIndex(), m.opts.DPI, cols, rows*2)
	if err != nil {
		m.err = err
		return
	}
	cells, gridCols, ok, err := m.eng.RenderText(m.ctx, in, m.tick)
	if err != nil {
		m.err = err
		return
	}
	if ok {
		m.frame = m.term.Cells(cells, gridCols, cols, rows)
		m.err = nil
		return
	}
	out, err := m.eng.RenderFrame(m.ctx, in, m.tick)
	if err != nil {
		m.err = err
		return
	}
	m.frame = m.term.HalfBlock(out, cols, rows)
	m.err = nil
}

// sourceIndex is the source frame for the current tick, shifted by the
// arrow-key offset.
func (m Model) sourceIndex() int {
	n := m.src.PageCount()
	if n == 0 {
		return 0
	}
	i := (m.tick + m.offset) % n
	if i < 0 {
		i += n
	}
	return i
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	state := "▶ playing"
	if m.paused {
		state = "❚❚ paused"
	}
	title := m.opts.Title
	if title == "" {
		title = "framefx"
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s  tick %d  frame %d/%d", state, m.tick, m.sourceIndex()+1, m.src.PageCount())))
	b.WriteString("\n")

	b.WriteString(m.chainLine())
	b.WriteString("\n")

	b.WriteString(m.frame)
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.waiting != "":
		b.WriteString(m.spinner.View() + statusStyle.Render(" generating "+m.waiting+" palette"))
	case m.eng.Recovered() > 0:
		b.WriteString(statusStyle.Render(fmt.Sprintf("%d effect stages recovered", m.eng.Recovered())))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpText()))
	return b.String()
}

// chainLine lists the chain with the digit that toggles each effect.
func (m Model) chainLine() string {
	items := m.eng.Chain.Effects()
	if len(items) == 0 {
		return inactiveStyle.Render("no effects")
	}
	parts := make([]string, 0, len(items))
	for i, in := range items {
		label := string(in.Type)
		if i < 9 {
			label = fmt.Sprintf("%d:%s", i+1, label)
		}
		if in.Region != "" {
			label += "@" + in.Region
		}
		if in.Active {
			parts = append(parts, chainStyle.Render(label))
		} else {
			parts = append(parts, inactiveStyle.Render(label))
		}
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(strings.Join(parts, " "))
}
