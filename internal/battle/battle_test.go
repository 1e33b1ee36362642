package battle_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/cryptopet/internal/battle"
	"github.com/Mohsinsiddi/cryptopet/internal/chain"
	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/contract/contracttest"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

func arena(t *testing.T, seed uint64) (*battle.Arena, *contracttest.Chain) {
	t.Helper()
	target, err := chain.NewRegistry().GetByName(chain.Sepolia)
	require.NoError(t, err)
	addr := common.HexToAddress(contract.DefaultAddress)
	c := contracttest.New(addr, target.ID())
	f := contract.NewDeriver(addr, target, nil).Derive(c, nil, false)
	return battle.NewArena(f, rand.NewPCG(seed, seed+1), nil), c
}

var hero = pets.Record{ID: "1", Name: "Ember", Type: pets.Fire, HasNFT: true}

func TestStartReadsOpponent(t *testing.T) {
	a, c := arena(t, 1)
	c.AddPet(contracttest.Pet{Name: "Splash", Type: uint8(pets.Water), Level: 4})

	b, err := a.Start(context.Background(), hero, "1")
	require.NoError(t, err)

	p, o := b.Player(), b.Opponent()
	assert.Equal(t, "Splash", o.Pet.Name)
	assert.Equal(t, 4, o.Pet.Level)
	assert.Equal(t, battle.StartHP, p.HP)
	assert.Equal(t, battle.StartHP, o.HP)
	assert.Equal(t, battle.Attack, o.Attack)
	for _, f := range []battle.Fighter{p, o} {
		assert.GreaterOrEqual(t, f.Speed, 1)
		assert.LessOrEqual(t, f.Speed, battle.MaxSpeed)
	}
	assert.Equal(t, "Flame Burst", p.Moves[0].Name)
	assert.Equal(t, "Aqua Jet", o.Moves[0].Name)
	assert.Equal(t, []string{"Battle started! Ember vs Splash"}, b.Log())

	want := battle.Player
	if o.Speed > p.Speed {
		want = battle.Opponent
	}
	assert.Equal(t, want, b.Turn())
}

func TestStartOpponentMissing(t *testing.T) {
	a, _ := arena(t, 1)

	_, err := a.Start(context.Background(), hero, "77")
	assert.ErrorIs(t, err, battle.ErrOpponentFetch)
	assert.ErrorIs(t, err, contract.ErrCallException)
	assert.Contains(t, err.Error(), "failed to fetch opponent pet")

	_, err = a.Start(context.Background(), hero, "not-a-number")
	assert.ErrorIs(t, err, battle.ErrOpponentFetch)
}

func TestStartTypeFailure(t *testing.T) {
	a, c := arena(t, 1)
	c.AddPet(contracttest.Pet{Name: "X"})
	c.FailCall(contract.MethodGetPetType, errors.New("connection refused"))

	_, err := a.Start(context.Background(), hero, "1")
	assert.ErrorIs(t, err, battle.ErrOpponentFetch)
}

func TestBattleRunsToKnockout(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		a, c := arena(t, seed)
		c.AddPet(contracttest.Pet{Name: "Leafy", Type: uint8(pets.Grass)})
		b, err := a.Start(context.Background(), hero, "1")
		require.NoError(t, err)

		first := b.Turn()
		moves := 0
		for !b.Over() {
			if b.Turn() == battle.Player {
				_, err = b.PlayerMove(moves % 4)
			} else {
				_, err = b.OpponentMove()
			}
			require.NoError(t, err)
			moves++
		}

		// 50 hp at 20 per hit: the side that started lands the third blow first.
		assert.Equal(t, 5, moves)
		winner, over := b.Winner()
		assert.True(t, over)
		assert.Equal(t, first, winner)

		loser := b.Opponent()
		if winner == battle.Opponent {
			loser = b.Player()
		}
		assert.Zero(t, loser.HP)
		assert.True(t, loser.Fainted())

		log := b.Log()
		assert.Len(t, log, 1+moves+1)
		assert.Contains(t, log[len(log)-1], "fainted!")

		_, err = b.PlayerMove(0)
		assert.ErrorIs(t, err, battle.ErrBattleOver)
	}
}

func TestMovesOutOfTurn(t *testing.T) {
	a, c := arena(t, 3)
	c.AddPet(contracttest.Pet{Name: "Foe"})
	b, err := a.Start(context.Background(), hero, "1")
	require.NoError(t, err)

	if b.Turn() == battle.Player {
		_, err = b.OpponentMove()
		assert.ErrorIs(t, err, battle.ErrNotYourTurn)
		_, err = b.PlayerMove(4)
		assert.ErrorIs(t, err, battle.ErrInvalidMove)
	} else {
		_, err = b.PlayerMove(0)
		assert.ErrorIs(t, err, battle.ErrNotYourTurn)
	}
}

func TestMovesPerType(t *testing.T) {
	for _, typ := range []pets.Type{pets.Fire, pets.Water, pets.Grass} {
		moves := battle.Moves(typ)
		require.Len(t, moves, 4)
		for _, m := range moves {
			assert.Equal(t, typ, m.Type)
		}
	}
	assert.Equal(t, battle.Moves(pets.Fire), battle.Moves(pets.Type(9)))
}

func TestStartWithoutReader(t *testing.T) {
	_, err := battle.NewArena(nil, nil, nil).Start(context.Background(), hero, "1")
	assert.ErrorIs(t, err, contract.ErrContractNotInitialized)
}
