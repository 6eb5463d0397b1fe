package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/smartcast/internal/speaker"
	"github.com/muurk/smartcast/internal/wire"
)

const pairTimeout = 10 * time.Second

type pairStartedMsg struct {
	result *speaker.PairResult
	err    error
}

type pairCompleteMsg struct {
	deviceID string
	token    string
	err      error
}

// PairStep is where the pairing screen is in the exchange
type PairStep int

const (
	PairStarting PairStep = iota
	PairAwaitingPIN
	PairSubmitting
	PairDone
	PairFailed
)

type pairKeyMap struct {
	Submit key.Binding
	Retry  key.Binding
	Skip   key.Binding
	Back   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pairKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Retry, k.Skip, k.Back}
}

// FullHelp returns keybindings for the expanded help view
func (k pairKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Retry, k.Skip, k.Back}}
}

// PairModel walks the user through the on-screen PIN challenge
type PairModel struct {
	Speaker *speaker.Speaker
	Name    string

	Step     PairStep
	Pending  *speaker.PairResult
	PINInput textinput.Model
	Err      error

	// DeviceID and Token are set once pairing succeeds
	DeviceID string
	Token    string

	Skipped       bool
	BackRequested bool

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    pairKeyMap
}

// NewPairModel creates the pairing screen for spk
func NewPairModel(spk *speaker.Speaker, name string) PairModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	pin := textinput.New()
	pin.Placeholder = "PIN shown on the speaker or TV"
	pin.CharLimit = 8
	pin.Width = 20

	return PairModel{
		Speaker:  spk,
		Name:     name,
		PINInput: pin,
		Spinner:  s,
		Help:     help.New(),
		Keys: pairKeyMap{
			Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit PIN")),
			Retry:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "restart pairing")),
			Skip:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "skip")),
			Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		},
	}
}

// Init sends the pairing start request
func (m PairModel) Init() tea.Cmd {
	return tea.Batch(startPairing(m.Speaker), m.Spinner.Tick)
}

// Update handles messages and updates the model
func (m PairModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case pairStartedMsg:
		switch {
		case msg.err != nil:
			m.Step, m.Err = PairFailed, msg.err
		case msg.result.Result != wire.ResultSuccess:
			m.Step = PairFailed
			m.Err = fmt.Errorf("device answered %s (is another pairing in progress?)", msg.result.Result)
		default:
			m.Step, m.Pending, m.Err = PairAwaitingPIN, msg.result, nil
			m.PINInput.SetValue("")
			return m, m.PINInput.Focus()
		}
		return m, nil

	case pairCompleteMsg:
		if msg.err != nil {
			m.Step, m.Err = PairAwaitingPIN, msg.err
			return m, m.PINInput.Focus()
		}
		m.Step, m.DeviceID, m.Token = PairDone, msg.deviceID, msg.token
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Back):
			m.BackRequested = true
			return m, nil
		case key.Matches(msg, m.Keys.Skip):
			m.Skipped = true
			return m, nil
		case key.Matches(msg, m.Keys.Retry):
			m.Step, m.Err, m.Pending = PairStarting, nil, nil
			return m, tea.Batch(startPairing(m.Speaker), m.Spinner.Tick)
		case key.Matches(msg, m.Keys.Submit) && m.Step == PairAwaitingPIN:
			pin := strings.TrimSpace(m.PINInput.Value())
			if pin == "" {
				return m, nil
			}
			m.Step = PairSubmitting
			m.PINInput.Blur()
			return m, tea.Batch(completePairing(m.Speaker, m.Pending, pin), m.Spinner.Tick)
		}
	}

	if m.Step == PairAwaitingPIN {
		var cmd tea.Cmd
		m.PINInput, cmd = m.PINInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the pairing screen
func (m PairModel) View() string {
	var b strings.Builder
	b.WriteString(RenderTitle("PAIR WITH " + strings.ToUpper(m.Name)))
	b.WriteString("\n")

	switch m.Step {
	case PairStarting:
		b.WriteString("  " + m.Spinner.View() + " Asking the speaker for a PIN...\n")
	case PairAwaitingPIN, PairSubmitting:
		b.WriteString("  Enter the PIN the speaker is showing or announcing.\n\n")
		b.WriteString("  PIN: " + m.PINInput.View() + "\n")
		if m.Step == PairSubmitting {
			b.WriteString("\n  " + m.Spinner.View() + " Verifying...\n")
		}
		if m.Err != nil {
			b.WriteString("\n" + RenderError(m.Err.Error()) + "\n")
		}
	case PairDone:
		b.WriteString(RenderSuccess("Paired. The token has been saved."))
		b.WriteString("\n")
	case PairFailed:
		b.WriteString(RenderError("Pairing could not start: " + m.Err.Error()))
		b.WriteString("\n\n  Press ctrl+r to try again or ctrl+s to continue without pairing.\n")
	}

	return RenderApplicationContainer(b.String(), m.Help.View(m.Keys), m.Width, m.Height)
}

func startPairing(spk *speaker.Speaker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pairTimeout)
		defer cancel()
		result, err := spk.Pair(ctx)
		return pairStartedMsg{result: result, err: err}
	}
}

func completePairing(spk *speaker.Speaker, pending *speaker.PairResult, pin string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pairTimeout)
		defer cancel()
		token, err := spk.CompletePair(ctx, pending, pin)
		if err != nil {
			return pairCompleteMsg{err: err}
		}
		return pairCompleteMsg{deviceID: pending.DeviceID, token: token}
	}
}
