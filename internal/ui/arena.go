package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/cryptopet/internal/battle"
)

// opponentDelay is how long the opponent "thinks" before moving.
const opponentDelay = 700 * time.Millisecond

// BattleModel is the Bubble Tea model for a battle.
type BattleModel struct {
	b        *battle.Battle
	cursor   int
	err      error
	delay    time.Duration
	quitting bool
}

type opponentTurnMsg struct{}

// NewBattleModel returns a model driving b.
func NewBattleModel(b *battle.Battle) BattleModel {
	return BattleModel{b: b, delay: opponentDelay}
}

// RunBattle runs the battle screen until it is over and the user quits.
func RunBattle(b *battle.Battle) error {
	_, err := tea.NewProgram(NewBattleModel(b)).Run()
	return err
}

func (m BattleModel) Init() tea.Cmd { return m.opponentCmd() }

func (m BattleModel) opponentCmd() tea.Cmd {
	if m.b.Over() || m.b.Turn() != battle.Opponent {
		return nil
	}
	return tea.Tick(m.delay, func(time.Time) tea.Msg { return opponentTurnMsg{} })
}

func (m BattleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.b.Player().Moves)-1 {
				m.cursor++
			}
		case "1", "2", "3", "4":
			m.cursor = int(msg.String()[0] - '1')
			return m.attack()
		case "enter", " ":
			return m.attack()
		}

	case opponentTurnMsg:
		if _, err := m.b.OpponentMove(); err != nil {
			m.err = err
		}
		return m, m.opponentCmd()
	}
	return m, nil
}

func (m BattleModel) attack() (tea.Model, tea.Cmd) {
	if m.b.Over() || m.b.Turn() != battle.Player {
		return m, nil
	}
	if _, err := m.b.PlayerMove(m.cursor); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	return m, m.opponentCmd()
}

func (m BattleModel) View() string {
	if m.quitting {
		return ""
	}
	p, o := m.b.Player(), m.b.Opponent()

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(fmt.Sprintf("⚔  %s vs %s", p.Pet.Name, o.Pet.Name)) + "\n")
	sb.WriteString(fighterLine(o) + "\n")
	sb.WriteString(fighterLine(p) + "\n\n")

	switch {
	case m.b.Over():
		winner, _ := m.b.Winner()
		if winner == battle.Player {
			sb.WriteString(Success("You win!") + "\n")
		} else {
			sb.WriteString(Err("You lost.") + "\n")
		}
	case m.b.Turn() == battle.Player:
		for i, mv := range p.Moves {
			line := fmt.Sprintf("  %d) %-14s %s", i+1, mv.Name, StyleMeta.Render(mv.Description))
			if i == m.cursor {
				line = StyleSelected.Render(fmt.Sprintf("▸ %d) %-14s", i+1, mv.Name)) + " " + StyleMeta.Render(mv.Description)
			}
			sb.WriteString(line + "\n")
		}
	default:
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("  %s is choosing a move…", o.Pet.Name)) + "\n")
	}
	if m.err != nil {
		sb.WriteString(Err(m.err.Error()) + "\n")
	}

	log := m.b.Log()
	if len(log) > 6 {
		log = log[len(log)-6:]
	}
	sb.WriteString("\n" + StyleBorder.Render(strings.Join(log, "\n")) + "\n")
	sb.WriteString(StyleMeta.Render("[ ↑↓ / 1-4 ] move   [ Enter ] attack   [ q ] quit") + "\n")
	return sb.String()
}

func fighterLine(f battle.Fighter) string {
	hp := f.HP * 100 / battle.StartHP
	return fmt.Sprintf("%s %s  lvl %d  spd %d  %s",
		padR(StyleValue.Render(f.Pet.Name), 14), TypeBadge(f.Pet.Type), f.Pet.Level, f.Speed,
		Bar(hp, 20, StyleError)+StyleMeta.Render(fmt.Sprintf(" hp %d/%d", f.HP, battle.StartHP)))
}
