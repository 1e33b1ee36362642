package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

// PetService is what the dashboard drives. *pets.Synchronizer implements it.
type PetService interface {
	Fetch(ctx context.Context) error
	Snapshot() pets.Snapshot
	Select(id string) error
	Feed(ctx context.Context, id string) (*types.Receipt, error)
	Play(ctx context.Context, id string) (*types.Receipt, error)
}

// DashboardModel is the Bubble Tea model for the live pet dashboard.
type DashboardModel struct {
	ctx      context.Context
	svc      PetService
	interval time.Duration
	header   string
	explorer string // base URL, e.g. https://sepolia.etherscan.io

	snap     pets.Snapshot
	busy     string
	flash    string
	flashErr error
	lastTx   string
	frame    int
	updated  time.Time
	quitting bool
	now      func() time.Time
}

type (
	dashTickMsg  struct{}
	dashSpinMsg  struct{}
	dashFetchMsg struct{ err error }
	dashDoneMsg  struct {
		verb    string
		name    string
		receipt *types.Receipt
		err     error
	}
)

// NewDashboardModel returns a dashboard refreshing svc every interval.
// header is shown in the title; explorer may be empty.
func NewDashboardModel(ctx context.Context, svc PetService, interval time.Duration, header, explorer string) DashboardModel {
	return DashboardModel{
		ctx:      ctx,
		svc:      svc,
		interval: interval,
		header:   header,
		explorer: strings.TrimRight(explorer, "/"),
		snap:     svc.Snapshot(),
		now:      time.Now,
	}
}

// RunDashboard runs the dashboard until the user quits.
func RunDashboard(m DashboardModel) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), dashTick(m.interval), dashSpin())
}

func dashTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return dashTickMsg{} })
}

func dashSpin() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return dashSpinMsg{} })
}

func (m DashboardModel) fetchCmd() tea.Cmd {
	return func() tea.Msg { return dashFetchMsg{err: m.svc.Fetch(m.ctx)} }
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg)

	case dashSpinMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, dashSpin()

	case dashTickMsg:
		if m.busy != "" {
			return m, dashTick(m.interval)
		}
		return m, tea.Batch(m.fetchCmd(), dashTick(m.interval))

	case dashFetchMsg:
		m.snap = m.svc.Snapshot()
		m.updated = m.now()

	case dashDoneMsg:
		m.busy = ""
		m.snap = m.svc.Snapshot()
		m.updated = m.now()
		if msg.receipt != nil {
			m.lastTx = msg.receipt.TxHash.Hex()
		}
		if msg.err != nil {
			m.flash, m.flashErr = "", msg.err
		} else {
			m.flash, m.flashErr = fmt.Sprintf("%s %s", msg.verb, msg.name), nil
		}
	}
	return m, nil
}

func (m DashboardModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "left", "h":
		m.move(-1)

	case "right", "l":
		m.move(1)

	case "r":
		if m.busy == "" {
			m.flash, m.flashErr = "", nil
			return m, m.fetchCmd()
		}

	case "f":
		return m.act("Feeding", "Fed", m.svc.Feed)

	case "p":
		return m.act("Playing with", "Played with", m.svc.Play)

	case "o":
		if m.lastTx != "" && m.explorer != "" {
			openBrowser(m.explorer + "/tx/" + m.lastTx)
			m.flash, m.flashErr = "Opening in browser…", nil
		}
	}
	return m, nil
}

func (m *DashboardModel) move(delta int) {
	if len(m.snap.Pets) == 0 {
		return
	}
	i := slices.IndexFunc(m.snap.Pets, func(p pets.Record) bool { return p.ID == m.snap.Selected.ID })
	if i < 0 {
		i = 0
	} else {
		i = (i + delta + len(m.snap.Pets)) % len(m.snap.Pets)
	}
	if err := m.svc.Select(m.snap.Pets[i].ID); err == nil {
		m.snap = m.svc.Snapshot()
	}
}

func (m DashboardModel) act(doing, done string, fn func(context.Context, string) (*types.Receipt, error)) (tea.Model, tea.Cmd) {
	pet := m.snap.Selected
	if m.busy != "" || !pet.HasNFT {
		return m, nil
	}
	m.busy = fmt.Sprintf("%s %s, confirm in your wallet…", doing, pet.Name)
	m.flash, m.flashErr = "", nil
	ctx := m.ctx
	return m, func() tea.Msg {
		r, err := fn(ctx, pet.ID)
		return dashDoneMsg{verb: done, name: pet.Name, receipt: r, err: err}
	}
}

func (m DashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("🐾 CryptoPet  ·  "+m.header) + "\n")

	spin := spinnerFrames[m.frame]
	switch {
	case m.busy != "":
		sb.WriteString(StyleInfo.Render(spin+" "+m.busy) + "\n\n")
	case m.snap.Loading:
		sb.WriteString(StyleInfo.Render(spin+" loading pets…") + "\n\n")
	case !m.updated.IsZero():
		sb.WriteString(Meta("  updated "+m.updated.Format("15:04:05")) + "\n\n")
	default:
		sb.WriteString(Meta("  connecting…") + "\n\n")
	}

	if len(m.snap.Pets) > 0 {
		var tabs []string
		for _, p := range m.snap.Pets {
			label := fmt.Sprintf(" %s #%s ", p.Name, p.ID)
			if p.ID == m.snap.Selected.ID {
				tabs = append(tabs, StyleSelected.Render(label))
			} else {
				tabs = append(tabs, StyleDim.Render(label))
			}
		}
		sb.WriteString(strings.Join(tabs, " ") + "\n\n")
	}
	sb.WriteString(PetCard(m.snap.Selected, m.now()) + "\n\n")

	if m.snap.Err != nil {
		sb.WriteString(FormatError(m.snap.Err) + "\n")
	}
	if m.flashErr != nil {
		sb.WriteString(FormatError(m.flashErr) + "\n")
	} else if m.flash != "" {
		sb.WriteString(Success(m.flash) + "\n")
	}
	if m.lastTx != "" {
		sb.WriteString(Meta("  last tx "+m.lastTx) + "\n")
	}

	sb.WriteString("\n" + dashboardControls(m.explorer != "" && m.lastTx != "") + "\n")
	return sb.String()
}

func dashboardControls(canOpen bool) string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ←→ ] pet"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ f ]") + StyleMeta.Render(" feed"))
	sb.WriteString(sep)
	sb.WriteString(StyleSuccess.Render("[ p ]") + StyleMeta.Render(" play"))
	sb.WriteString(sep)
	sb.WriteString(StyleInfo.Render("[ r ]") + StyleMeta.Render(" refresh"))
	if canOpen {
		sb.WriteString(sep)
		sb.WriteString(StyleInfo.Render("[ o ]") + StyleMeta.Render(" open tx"))
	}
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ] quit"))
	return sb.String()
}
