package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(m tea.Model, msgs ...tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		m, cmd = m.Update(msg)
	}
	return m, cmd
}

var (
	down  = tea.KeyMsg{Type: tea.KeyDown}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
)

func TestWizardCollectsAnswers(t *testing.T) {
	m, cmd := send(initialWizard([]string{"ethereum", "sepolia", "westend-asset-hub"}),
		down, enter, // sepolia
		down, down, enter, // failover
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("alicex")},
		tea.KeyMsg{Type: tea.KeyBackspace},
		enter,
	)
	require.NotNil(t, cmd)

	res := m.(wizardModel).result
	assert.Equal(t, "sepolia", res.TargetChain)
	assert.Equal(t, "failover", res.RPCAlgorithm)
	assert.Equal(t, "alice", res.WalletName)
	assert.False(t, res.Cancelled)
}

func TestWizardSkipWalletAndCancel(t *testing.T) {
	m, _ := send(initialWizard([]string{"sepolia"}), enter, enter, enter)
	assert.Empty(t, m.(wizardModel).result.WalletName)

	m, _ = send(initialWizard([]string{"sepolia"}), tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.(wizardModel).result.Cancelled)
}

func TestPickerStartsOnCurrent(t *testing.T) {
	items := []PickerItem{
		{Label: "alice", Value: "alice"},
		{Label: "bob", Value: "bob", Current: true},
		{Label: "carol", Value: "carol"},
	}
	m, cmd := send(newPicker("Wallets", items), down, enter)
	require.NotNil(t, cmd)
	pm := m.(pickerModel)
	require.NotNil(t, pm.selected)
	assert.Equal(t, "carol", pm.selected.Value)

	m, _ = send(newPicker("Wallets", items), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, m.(pickerModel).quitting)
	assert.Empty(t, m.View())
}

func TestPickItemEmpty(t *testing.T) {
	_, err := PickItem("none", nil)
	assert.ErrorIs(t, err, ErrNothingToPick)
}
