package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/smartcast/internal/discovery"
	"github.com/muurk/smartcast/internal/speaker"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenPair      Screen = "pair"
	ScreenDashboard Screen = "dashboard"
)

// ConnectFunc builds a speaker for dev. paired reports whether a stored token
// was applied; when false the pairing screen runs first.
type ConnectFunc func(dev *discovery.Device) (spk *speaker.Speaker, paired bool)

// PairedFunc persists a successful pairing
type PairedFunc func(dev *discovery.Device, deviceID, token string) error

// Options configures the wizard
type Options struct {
	// Device skips discovery when set
	Device      *discovery.Device
	Scan        ScanFunc
	ScanTimeout time.Duration
	// Interval is the dashboard poll interval
	Interval time.Duration
	Connect  ConnectFunc
	OnPaired PairedFunc
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	DiscoveryModel DiscoveryModel
	PairModel      PairModel
	DashboardModel DashboardModel

	SelectedDevice *discovery.Device
	Speaker        *speaker.Speaker
	LastError      error

	Width  int
	Height int

	opts Options
}

// NewAppModel creates the wizard. It starts at the dashboard (or pairing) when
// opts.Device is set, otherwise at discovery.
func NewAppModel(opts Options) AppModel {
	m := AppModel{opts: opts}
	if opts.Device == nil {
		m.CurrentScreen = ScreenDiscovery
		m.DiscoveryModel = NewDiscoveryModel(opts.Scan, opts.ScanTimeout)
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	if m.opts.Device != nil {
		return func() tea.Msg { return deviceChosenMsg{m.opts.Device} }
	}
	return m.DiscoveryModel.Init()
}

type deviceChosenMsg struct{ device *discovery.Device }

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		m.DiscoveryModel.Width, m.DiscoveryModel.Height = msg.Width, msg.Height
		m.PairModel.Width, m.PairModel.Height = msg.Width, msg.Height
		m.DashboardModel.Width, m.DashboardModel.Height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeDashboard()
			return m, tea.Quit
		}

	case deviceChosenMsg:
		return m.connect(msg.device)
	}

	return m.updateCurrentScreen(msg)
}

func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)

		if device := m.DiscoveryModel.GetSelectedDevice(); device != nil {
			m.DiscoveryModel.Selected = false
			return m.connect(device)
		}

		// Quit from the list, but not while typing an address or a filter
		if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.DiscoveryModel.ManualMode && !m.DiscoveryModel.Scanning &&
			m.DiscoveryModel.DeviceList.FilterState() != list.Filtering {
			if keyMsg.String() == "q" || keyMsg.String() == "esc" {
				return m, tea.Quit
			}
		}
		return m, cmd

	case ScreenPair:
		updated, cmd := m.PairModel.Update(msg)
		m.PairModel = updated.(PairModel)

		switch {
		case m.PairModel.BackRequested:
			return m.goBack()
		case m.PairModel.Step == PairDone:
			if m.opts.OnPaired != nil {
				if err := m.opts.OnPaired(m.SelectedDevice, m.PairModel.DeviceID, m.PairModel.Token); err != nil {
					m.LastError = err
				}
			}
			return m.showDashboard()
		case m.PairModel.Skipped:
			return m.showDashboard()
		}
		return m, cmd

	case ScreenDashboard:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.DashboardModel.Keys.Quit) {
			m.closeDashboard()
			return m, tea.Quit
		}

		updated, cmd := m.DashboardModel.Update(msg)
		m.DashboardModel = updated.(DashboardModel)

		if m.DashboardModel.BackRequested {
			return m.goBack()
		}
		return m, cmd
	}
	return m, nil
}

// connect builds a speaker for device and moves to pairing or the dashboard
func (m AppModel) connect(device *discovery.Device) (tea.Model, tea.Cmd) {
	m.SelectedDevice = device

	var paired bool
	if m.opts.Connect != nil {
		m.Speaker, paired = m.opts.Connect(device)
	} else {
		m.Speaker = speaker.New(device.IP, speaker.WithPort(device.Port))
	}

	if !paired {
		m.CurrentScreen = ScreenPair
		m.PairModel = NewPairModel(m.Speaker, device.Name)
		m.PairModel.Width, m.PairModel.Height = m.Width, m.Height
		return m, m.PairModel.Init()
	}
	return m.showDashboard()
}

func (m AppModel) showDashboard() (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenDashboard
	m.DashboardModel = NewDashboardModel(m.Speaker, m.SelectedDevice.Name, m.opts.Interval)
	m.DashboardModel.Width, m.DashboardModel.Height = m.Width, m.Height
	return m, m.DashboardModel.Init()
}

// goBack returns to discovery, or quits when discovery was skipped
func (m AppModel) goBack() (tea.Model, tea.Cmd) {
	m.closeDashboard()
	if m.opts.Device != nil {
		return m, tea.Quit
	}
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(m.opts.Scan, m.opts.ScanTimeout)
	m.DiscoveryModel.Width, m.DiscoveryModel.Height = m.Width, m.Height
	return m, m.DiscoveryModel.Init()
}

func (m AppModel) closeDashboard() {
	if m.CurrentScreen == ScreenDashboard {
		m.DashboardModel.Close()
	}
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenPair:
		return m.PairModel.View()
	case ScreenDashboard:
		return m.DashboardModel.View()
	default:
		return "Connecting..."
	}
}
