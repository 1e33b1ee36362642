package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WizardResult holds answers collected by the setup wizard.
type WizardResult struct {
	TargetChain  string
	RPCAlgorithm string
	WalletName   string // empty: skip wallet creation
	Cancelled    bool
}

// --- Bubble Tea model ---

type wizardStep int

const (
	stepChain wizardStep = iota
	stepAlgorithm
	stepWallet
	stepDone
)

type wizardModel struct {
	step      wizardStep
	result    WizardResult
	chains    []string
	cursor    int
	choices   []string
	input     string
	inputMode bool
}

var algorithms = []string{"fastest", "round-robin", "failover"}

func initialWizard(chains []string) wizardModel {
	return wizardModel{
		step:    stepChain,
		chains:  chains,
		choices: chains,
	}
}

func (m wizardModel) Init() tea.Cmd { return nil }

func (m wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.result.Cancelled = true
			return m, tea.Quit

		case tea.KeyUp:
			if !m.inputMode && m.cursor > 0 {
				m.cursor--
			}

		case tea.KeyDown:
			if !m.inputMode && m.cursor < len(m.choices)-1 {
				m.cursor++
			}

		case tea.KeyEnter:
			if m.inputMode {
				m.result.WalletName = strings.TrimSpace(m.input)
				m.inputMode = false
			} else if m.cursor < len(m.choices) {
				m.apply(m.choices[m.cursor])
			}
			m.cursor = 0
			m.advance()

		case tea.KeyBackspace:
			if m.inputMode && len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}

		case tea.KeyRunes:
			if m.inputMode {
				m.input += string(msg.Runes)
			}
		}
	}

	if m.step == stepDone {
		return m, tea.Quit
	}
	return m, nil
}

func (m *wizardModel) apply(choice string) {
	switch m.step {
	case stepChain:
		m.result.TargetChain = choice
	case stepAlgorithm:
		m.result.RPCAlgorithm = choice
	}
}

func (m *wizardModel) advance() {
	m.step++
	switch m.step {
	case stepAlgorithm:
		m.choices = algorithms
	case stepWallet:
		m.choices = nil
		m.inputMode = true
		m.input = ""
	}
}

func (m wizardModel) View() string {
	var s string

	switch m.step {
	case stepChain:
		s = renderMenu("Select the network your pets live on:", m.choices, m.cursor)
	case stepAlgorithm:
		s = renderMenu("Select RPC algorithm:", m.choices, m.cursor)
	case stepWallet:
		s = StyleTitle.Render("Create a wallet (optional)") + "\n\n"
		s += StyleMeta.Render("Enter a wallet name (or press Enter to skip):") + "\n"
		s += "> " + StyleValue.Render(m.input) + "█\n"
	case stepDone:
		s = Success("Setup complete!") + "\n"
	}

	return StyleBorder.Render(s) + "\n"
}

func renderMenu(title string, items []string, cursor int) string {
	s := StyleTitle.Render(title) + "\n\n"
	for i, item := range items {
		icon := "  "
		style := lipgloss.NewStyle().Foreground(ColorValue)
		if i == cursor {
			icon = "▸ "
			style = StyleSelected
		}
		s += icon + style.Render(item) + "\n"
	}
	s += "\n" + StyleMeta.Render("↑/↓ navigate · Enter select · Esc quit")
	return s
}

// RunWizard launches the interactive setup wizard over chains and returns
// the result.
func RunWizard(chains []string) (*WizardResult, error) {
	final, err := tea.NewProgram(initialWizard(chains)).Run()
	if err != nil {
		return nil, fmt.Errorf("wizard error: %w", err)
	}
	result := final.(wizardModel).result
	return &result, nil
}
