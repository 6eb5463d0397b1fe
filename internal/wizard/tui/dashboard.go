package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/transport"
)

const actionTimeout = 5 * time.Second

// Messages for async operations
type snapshotMsg speaker.Snapshot
type refreshedMsg speaker.Snapshot
type pollErrorMsg struct {
	err     error
	refresh bool // from a direct read rather than the poller
}
type inputsMsg struct {
	names []string
	err   error
}
type actionDoneMsg struct {
	label string
	err   error
}

// dashboardKeyMap defines key bindings for the dashboard screen
type dashboardKeyMap struct {
	Power      key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Mute       key.Binding
	NextInput  key.Binding
	Play       key.Binding
	Pause      key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Back       key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.VolumeUp, k.VolumeDown, k.Mute, k.NextInput, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Mute, k.NextInput},
		{k.VolumeUp, k.VolumeDown},
		{k.Play, k.Pause},
		{k.Refresh, k.Help, k.Back, k.Quit},
	}
}

// DefaultDashboardKeys returns the dashboard key bindings
func DefaultDashboardKeys() dashboardKeyMap {
	return dashboardKeyMap{
		Power:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "power")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "=", "up", "k"), key.WithHelp("+/↑", "volume up")),
		VolumeDown: key.NewBinding(key.WithKeys("-", "down", "j"), key.WithHelp("-/↓", "volume down")),
		Mute:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		NextInput:  key.NewBinding(key.WithKeys("i", "tab"), key.WithHelp("i", "next input")),
		Play:       key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "play")),
		Pause:      key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "pause")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// DashboardModel shows live speaker state and sends controls.
// State arrives from the speaker's change poller through a Subscription.
type DashboardModel struct {
	Speaker *speaker.Speaker
	Name    string

	Snapshot    speaker.Snapshot
	HasSnapshot bool
	LastUpdated time.Time
	Inputs      []string

	Busy    string // label of the action in flight
	Status  string // result of the last action
	LastErr error

	BackRequested bool

	Width     int
	Height    int
	Spinner   spinner.Model
	VolumeBar progress.Model
	Help      help.Model
	Keys      dashboardKeyMap

	sub *speaker.Subscription
}

// NewDashboardModel creates a dashboard and subscribes to spk's changes,
// polling every interval. Call Close when the dashboard is discarded.
func NewDashboardModel(spk *speaker.Speaker, name string, interval time.Duration) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	if interval <= 0 {
		interval = speaker.MinPollInterval
	}

	return DashboardModel{
		Speaker:   spk,
		Name:      name,
		Spinner:   s,
		VolumeBar: bar,
		Help:      help.New(),
		Keys:      DefaultDashboardKeys(),
		sub:       spk.Subscribe(interval),
	}
}

// Init waits for state changes and loads the input list
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.sub),
		waitForPollError(m.sub),
		loadInputs(m.Speaker),
		m.Spinner.Tick,
	)
}

// Close releases the change subscription. Copies of the model share it.
func (m DashboardModel) Close() {
	m.sub.Close()
}

// Update handles messages and updates the model
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m = m.withSnapshot(speaker.Snapshot(msg))
		return m, waitForSnapshot(m.sub)

	case refreshedMsg:
		return m.withSnapshot(speaker.Snapshot(msg)), nil

	case pollErrorMsg:
		m.LastErr = msg.err
		if msg.refresh {
			return m, nil
		}
		return m, waitForPollError(m.sub)

	case inputsMsg:
		if msg.err != nil {
			m.LastErr = msg.err
			return m, nil
		}
		m.Inputs = msg.names
		return m, nil

	case actionDoneMsg:
		m.Busy = ""
		if msg.err != nil {
			m.LastErr = msg.err
			m.Status = ""
			return m, nil
		}
		m.Status = msg.label
		return m, readSnapshot(m.Speaker)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m DashboardModel) withSnapshot(snap speaker.Snapshot) DashboardModel {
	m.Snapshot = snap
	m.HasSnapshot = true
	m.LastUpdated = time.Now()
	m.LastErr = nil
	return m
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Back):
		m.BackRequested = true
		return m, nil
	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
		return m, nil
	case key.Matches(msg, m.Keys.Refresh):
		return m, tea.Batch(readSnapshot(m.Speaker), loadInputs(m.Speaker))
	}

	if m.Busy != "" {
		return m, nil
	}

	spk := m.Speaker
	var label string
	var run func(ctx context.Context) (string, error)

	switch {
	case key.Matches(msg, m.Keys.Power):
		label, run = "Power toggled", spk.Power.Toggle
	case key.Matches(msg, m.Keys.VolumeUp):
		label, run = "Volume up", spk.Volume.Up
	case key.Matches(msg, m.Keys.VolumeDown):
		label, run = "Volume down", spk.Volume.Down
	case key.Matches(msg, m.Keys.Mute):
		label, run = "Mute toggled", spk.Volume.ToggleMute
	case key.Matches(msg, m.Keys.Play):
		label, run = "Play", spk.Media.Play
	case key.Matches(msg, m.Keys.Pause):
		label, run = "Pause", spk.Media.Pause
	case key.Matches(msg, m.Keys.NextInput):
		next := NextInput(m.Inputs, m.Snapshot.Input)
		if next == "" {
			return m, nil
		}
		label = "Input " + next
		run = func(ctx context.Context) (string, error) { return spk.Input.Set(ctx, next) }
	default:
		return m, nil
	}

	m.Busy = label
	return m, tea.Batch(runAction(label, run), m.Spinner.Tick)
}

// NextInput returns the input after current in names, wrapping around.
// Matching is case-insensitive; an unknown current selects the first input.
func NextInput(names []string, current string) string {
	if len(names) == 0 {
		return ""
	}
	for i, name := range names {
		if strings.EqualFold(name, current) {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// View renders the dashboard
func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(RenderTitle(strings.ToUpper(m.Name)))
	b.WriteString("\n")

	if !m.HasSnapshot {
		b.WriteString("  " + m.Spinner.View() + " Reading speaker state...\n")
	} else {
		b.WriteString(m.renderState())
	}

	b.WriteString("\n")
	switch {
	case m.Busy != "":
		b.WriteString("  " + m.Spinner.View() + " " + m.Busy + "...\n")
	case m.LastErr != nil:
		b.WriteString(RenderError(m.LastErr.Error()))
		b.WriteString("\n")
		for _, hint := range transport.TroubleshootingHint(m.LastErr) {
			b.WriteString(SubtitleStyle.Render("    • "+hint) + "\n")
		}
	case m.Status != "":
		b.WriteString(lipgloss.NewStyle().Foreground(SecondaryColor).Render("  ✓ "+m.Status) + "\n")
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m DashboardModel) renderState() string {
	snap := m.Snapshot

	power := OffStyle.Render(snap.Power.String())
	if snap.Power == speaker.PowerOn {
		power = OnStyle.Render("on")
	}

	volume := m.VolumeBar.ViewAs(float64(snap.Volume)/speaker.MaxVolume) + " " + ValueStyle.Render(fmt.Sprintf("%d", snap.Volume))
	if snap.Mute {
		volume += " " + lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("MUTED")
	}

	input := ValueStyle.Render(snap.Input)
	if len(m.Inputs) > 0 {
		input += SubtitleStyle.Render("  (" + strings.Join(m.Inputs, ", ") + ")")
	}

	lines := []string{
		"  " + LabelStyle.Render("Power") + power,
		"  " + LabelStyle.Render("Volume") + volume,
		"  " + LabelStyle.Render("Input") + input,
		"",
		"  " + SubtitleStyle.Render("Updated "+m.LastUpdated.Format("15:04:05")),
	}
	return strings.Join(lines, "\n") + "\n"
}

// waitForSnapshot blocks until the next change; it yields no message once the
// subscription is closed
func waitForSnapshot(sub *speaker.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-sub.C:
			return snapshotMsg(snap)
		case <-sub.Done():
			return nil
		}
	}
}

func waitForPollError(sub *speaker.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-sub.Errors:
			return pollErrorMsg{err: err}
		case <-sub.Done():
			return nil
		}
	}
}

func readSnapshot(spk *speaker.Speaker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		snap, err := spk.Snapshot(ctx)
		if err != nil {
			return pollErrorMsg{err: err, refresh: true}
		}
		return refreshedMsg(snap)
	}
}

func loadInputs(spk *speaker.Speaker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		names, err := spk.Input.List(ctx)
		return inputsMsg{names: names, err: err}
	}
}

func runAction(label string, run func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := run(ctx)
		return actionDoneMsg{label: label, err: err}
	}
}
