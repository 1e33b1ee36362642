package ui

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/battle"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/contract/contracttest"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

func newBattle(t *testing.T) *battle.Battle {
	t.Helper()
	target := sepolia(t)
	addr := common.HexToAddress(contract.DefaultAddress)
	c := contracttest.New(addr, target.ID())
	c.AddPet(contracttest.Pet{Name: "Splash", Type: uint8(pets.Water)})
	f := contract.NewDeriver(addr, target, nil).Derive(c, nil, false)

	b, err := battle.NewArena(f, rand.NewPCG(7, 8), nil).
		Start(context.Background(), pets.Record{ID: "9", Name: "Ember", HasNFT: true}, "1")
	require.NoError(t, err)
	return b
}

func TestBattleModelPlaysToTheEnd(t *testing.T) {
	m := NewBattleModel(newBattle(t))
	assert.Contains(t, m.View(), "Ember vs Splash")

	for i := 0; i < 10 && !m.b.Over(); i++ {
		if m.b.Turn() == battle.Player {
			next, _ := m.Update(key("2"))
			m = next.(BattleModel)
		} else {
			assert.Contains(t, m.View(), "Splash is choosing")
			next, _ := m.Update(opponentTurnMsg{})
			m = next.(BattleModel)
		}
		require.NoError(t, m.err)
	}

	require.True(t, m.b.Over())
	assert.Nil(t, m.opponentCmd())
	view := m.View()
	assert.Contains(t, view, "fainted!")
	if w, _ := m.b.Winner(); w == battle.Player {
		assert.Contains(t, view, "You win!")
		assert.Contains(t, view, "Heat Wave")
	} else {
		assert.Contains(t, view, "You lost.")
	}
}

func TestBattleModelIgnoresMovesOutOfTurn(t *testing.T) {
	m := NewBattleModel(newBattle(t))
	if m.b.Turn() == battle.Player {
		require.Nil(t, m.Init())
		next, _ := m.Update(opponentTurnMsg{})
		assert.ErrorIs(t, next.(BattleModel).err, battle.ErrNotYourTurn)
		return
	}
	require.NotNil(t, m.Init())
	next, cmd := m.Update(key("1"))
	assert.Nil(t, cmd)
	assert.Len(t, next.(BattleModel).b.Log(), 1)
}
