package tui

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartcast/internal/discovery"
)

// Messages for async operations
type scanStartMsg struct{}
type scanTickMsg time.Time
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// ScanFunc runs one discovery pass
type ScanFunc func(timeout time.Duration) ([]*discovery.Device, error)

// discoveryKeyMap defines key bindings for the device list
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualModeKeyMap defines key bindings for manual address entry
type manualModeKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m manualModeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m manualModeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Confirm, m.Cancel}}
}

// scanningKeyMap defines key bindings while a scan runs
type scanningKeyMap struct {
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (s scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{s.Manual, s.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (s scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{s.Manual, s.Quit}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

// FilterValue implements list.Item
func (d deviceItem) FilterValue() string {
	return d.device.Name + " " + d.device.Model + " " + d.device.IP
}

// Title returns the device name for list display
func (d deviceItem) Title() string { return d.device.Name }

// Description returns device details for list display
func (d deviceItem) Description() string {
	model := d.device.Model
	if model == "" {
		model = "SmartCast"
	}
	return fmt.Sprintf("%s • %s", d.device.Address(), model)
}

// deviceDelegate renders devices as cards
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 7 }

func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := di.device
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + device.Name))
	} else {
		content.WriteString("  " + device.Name)
	}
	content.WriteString("\n\n")

	model := device.Model
	if model == "" {
		model = "unknown"
	}
	fmt.Fprintf(&content, "  Address: %s\n", device.Address())
	fmt.Fprintf(&content, "  Model:   %s", model)

	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel represents the device discovery screen state
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Selected   bool
	Err        error

	// Manual address entry
	ManualMode bool
	AddrInput  textinput.Model
	ManualErr  string

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	ScanTimeout   time.Duration
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualModeKeyMap
	ScanningKeys  scanningKeyMap

	scan ScanFunc
}

// NewDiscoveryModel creates a discovery screen that scans with fn for timeout.
// A nil fn uses mDNS.
func NewDiscoveryModel(fn ScanFunc, timeout time.Duration) DiscoveryModel {
	if fn == nil {
		fn = discovery.ScanForDevices
	}
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	addrInput := textinput.New()
	addrInput.Placeholder = "192.168.1.40 or 192.168.1.40:7345"
	addrInput.CharLimit = 64
	addrInput.Width = 36

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.Styles.Title = TitleStyle

	return DiscoveryModel{
		DeviceList:  deviceList,
		AddrInput:   addrInput,
		Spinner:     s,
		ProgressBar: progressBar,
		ScanTimeout: timeout,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
			Enter:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "connect")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		ManualKeys: manualModeKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
		ScanningKeys: scanningKeyMap{
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address")),
			Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		scan: fn,
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanDevices(m.scan, m.ScanTimeout),
		m.Spinner.Tick,
		scanTick(),
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 10) // Leave room for header/footer

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanTickMsg:
		if m.Scanning {
			return m, scanTick()
		}
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, 0, len(msg.devices))
		for _, dev := range msg.devices {
			items = append(items, deviceItem{device: dev})
		}
		m.DeviceList.SetItems(items)
		return m, nil

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.ManualMode && !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}
	return m, cmd
}

// updateNormalMode handles keyboard input in the device list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.ManualErr = ""
		m.AddrInput.SetValue("")
		return m, m.AddrInput.Focus()

	case m.Scanning:
		if key.Matches(msg, m.ScanningKeys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.Keys.Enter):
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		m.DeviceList.SetItems([]list.Item{})
		m.Err = nil
		return m, m.startScan()
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual address entry
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.AddrInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		device, err := ParseManualAddress(m.AddrInput.Value())
		if err != nil {
			m.ManualErr = err.Error()
			return m, nil
		}
		items := append([]list.Item{deviceItem{device: device}}, m.DeviceList.Items()...)
		m.DeviceList.SetItems(items)
		m.DeviceList.Select(0)
		m.ManualMode = false
		m.AddrInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.AddrInput, cmd = m.AddrInput.Update(msg)
	return m, cmd
}

// ParseManualAddress turns "host" or "host:port" into a device entry.
// The port defaults to the current firmware's 9000.
func ParseManualAddress(value string) (*discovery.Device, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("address is empty")
	}

	host, port := value, discovery.DefaultPort
	if h, p, err := net.SplitHostPort(value); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, n
	}
	if host == "" {
		return nil, fmt.Errorf("address is empty")
	}

	return &discovery.Device{
		Name:         "Manual: " + host,
		IP:           host,
		Hostname:     host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = m.Help.View(m.ScanningKeys)
	default:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.Keys)
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}

	elapsed := time.Since(m.ScanStartTime)
	percent := float64(elapsed) / float64(m.ScanTimeout)
	if percent > 1 {
		percent = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR SPEAKERS"),
		SubtitleStyle.Render("Browsing for SmartCast devices on your network..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)
	return lipgloss.Place(width, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderDeviceResults renders the device list or "no devices found"
func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)
	case len(m.DeviceList.Items()) == 0:
		warningStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
		b.WriteString("  ")
		b.WriteString(warningStyle.Render("⚠ No speakers found on your network"))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)
	default:
		b.WriteString(m.DeviceList.View())
	}
	return b.String()
}

const troubleshooting = `  Troubleshooting:
    • Ensure the speaker is powered on and on the same network
    • Multicast DNS may be blocked between VLANs or by the router
    • Press 'm' to enter the speaker's address by hand
`

// renderManualEntry renders the manual address dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString(RenderSubtitle("Enter the speaker address"))
	b.WriteString("\n\n  Address: ")
	b.WriteString(m.AddrInput.View())
	b.WriteString("\n")
	if m.ManualErr != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(ErrorColor).Render("  " + m.ManualErr))
		b.WriteString("\n")
	}
	return b.String()
}

// GetSelectedDevice returns the selected device, if any
func (m DiscoveryModel) GetSelectedDevice() *discovery.Device {
	if !m.Selected {
		return nil
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

func scanDevices(fn ScanFunc, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		devices, err := fn(timeout)
		return scanCompleteMsg{devices: devices, err: err}
	}
}

func scanTick() tea.Cmd {
	return tea.Tick(time.Second/4, func(t time.Time) tea.Msg { return scanTickMsg(t) })
}
