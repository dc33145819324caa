// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Conectric/conectric-usb-gateway-beta/pkg/conectric"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard for a running gateway",
	Long: `Monitor a gateway session in an interactive terminal UI.

Shows the bring-up state, the dongle identity, session statistics and a
scrolling log of decoded sensor messages.

Keys:
  up/down   scroll the message log
  q         quit

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Messages
type monitorTickMsg time.Time
type sensorMsg conectric.Message
type readyMsg conectric.Identity
type gatewayStoppedMsg struct{ err error }

type monitorModel struct {
	connInfo string
	gateway  *conectric.Gateway

	identity conectric.Identity
	ready    bool
	stopped  bool
	stopErr  error

	messages    []string
	maxMessages int
	vp          viewport.Model
	vpReady     bool

	width    int
	height   int
	quitting bool
}

func initialMonitorModel(g *conectric.Gateway, connInfo string) monitorModel {
	return monitorModel{
		connInfo:    connInfo,
		gateway:     g,
		messages:    make([]string, 0),
		maxMessages: 500,
		width:       80,
		height:      24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case monitorTickMsg:
		// Statistics redraw only; the snapshot is taken in View.
		return m, monitorTickCmd()

	case readyMsg:
		m.ready = true
		m.identity = conectric.Identity(msg)

	case sensorMsg:
		m.appendMessage(conectric.Message(msg))

	case gatewayStoppedMsg:
		m.stopped = true
		m.stopErr = msg.err
	}

	if m.vpReady {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) resizeViewport() {
	// Header, identity, stats box and footer take the rest.
	vpHeight := m.height - 12
	if vpHeight < 5 {
		vpHeight = 5
	}
	if !m.vpReady {
		m.vp = viewport.New(m.width-4, vpHeight)
		m.vpReady = true
	} else {
		m.vp.Width = m.width - 4
		m.vp.Height = vpHeight
	}
	m.vp.SetContent(strings.Join(m.messages, "\n"))
	m.vp.GotoBottom()
}

func (m *monitorModel) appendMessage(msg conectric.Message) {
	payload, _ := json.Marshal(msg.Payload)
	line := fmt.Sprintf("%s  %-20s %s #%03d  %s",
		time.Now().Format("15:04:05.000"),
		msg.Type, msg.SensorID, msg.SequenceNumber, payload)

	m.messages = append(m.messages, line)
	if len(m.messages) > m.maxMessages {
		m.messages = m.messages[len(m.messages)-m.maxMessages:]
	}
	if m.vpReady {
		atBottom := m.vp.AtBottom()
		m.vp.SetContent(strings.Join(m.messages, "\n"))
		if atBottom {
			m.vp.GotoBottom()
		}
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("CONGATE - GATEWAY MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Press 'q' to quit", m.connInfo)))
	s.WriteString("\n\n")

	// Bring-up status
	switch {
	case m.stopped && m.stopErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Gateway stopped: %v", m.stopErr)))
		s.WriteString("\n\n")
	case m.stopped:
		s.WriteString(warningStyle.Render("Gateway stopped"))
		s.WriteString("\n\n")
	case !m.ready:
		s.WriteString(warningStyle.Render(fmt.Sprintf("⏳ Bring-up in progress (%s)...", m.gateway.State())))
		s.WriteString("\n\n")
	default:
		s.WriteString(valueStyle.Render("✓ Gateway ready"))
		s.WriteString(headerStyle.Render(fmt.Sprintf("  MAC %s | contiki %s | conectric %s",
			m.identity.MACAddress, m.identity.ContikiVersion, m.identity.ConectricVersion)))
		s.WriteString("\n\n")
	}

	// Statistics
	stats := m.gateway.Stats()
	dropped := stats.Duplicates + stats.Suppressed + stats.PrematureFrames +
		stats.HeaderRejects + stats.UnknownTypes + stats.IgnoredTypes + stats.DecodeErrors

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Records:"), valueStyle.Render(fmt.Sprintf("%d", stats.TotalRecords)),
		labelStyle.Render("Delivered:"), valueStyle.Render(fmt.Sprintf("%d", stats.Delivered)),
		labelStyle.Render("Dropped:"), func() string {
			if dropped > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", dropped))
			}
			return valueStyle.Render("0")
		}(),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Duplicates:"), valueStyle.Render(fmt.Sprintf("%d", stats.Duplicates)),
		labelStyle.Render("Decode errors:"), func() string {
			if stats.DecodeErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", stats.DecodeErrors))
			}
			return valueStyle.Render("0")
		}(),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f msg/s", stats.MessageRate())),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Message log
	s.WriteString(labelStyle.Render("Sensor Messages:"))
	s.WriteString("\n")
	if m.vpReady {
		content := m.vp.View()
		if len(m.messages) == 0 {
			content = headerStyle.Render("  (no messages yet)")
		}
		s.WriteString(boxStyle.Width(m.width - 4).Render(content))
	} else if len(m.messages) == 0 {
		s.WriteString(headerStyle.Render("  (no messages yet)"))
	}

	return s.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	opts, err := loadEngineOptions()
	if err != nil {
		return err
	}

	var p *tea.Program
	opts.OnSensorMessage = func(m conectric.Message) {
		if p != nil {
			p.Send(sensorMsg(m))
		}
	}
	opts.OnGatewayReady = func(id conectric.Identity) {
		if p != nil {
			p.Send(readyMsg(id))
		}
	}

	g, err := conectric.NewGateway(opts)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := initialMonitorModel(g, connInfo)
	p = tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		err := g.Run(ctx, conn)
		if ctx.Err() == nil {
			p.Send(gatewayStoppedMsg{err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("TUI error: %v", err)
	}

	cancel()
	conn.Close()
	return nil
}
