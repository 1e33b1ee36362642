// Package battle runs turn-based fights between two pets.
package battle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Mohsinsiddi/cryptopet/internal/contract"
	"github.com/Mohsinsiddi/cryptopet/internal/pets"
)

const (
	StartHP  = 50
	Attack   = 20
	MaxSpeed = 10
)

var (
	// ErrOpponentFetch wraps failures reading the opponent from the contract.
	ErrOpponentFetch = errors.New("failed to fetch opponent pet")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrBattleOver    = errors.New("battle is over")
	ErrInvalidMove   = errors.New("invalid move")
)

// Side identifies a fighter.
type Side int

const (
	Player Side = iota
	Opponent
)

func (s Side) String() string {
	if s == Player {
		return "player"
	}
	return "opponent"
}

// Reader is the part of the contract facade a battle needs.
type Reader interface {
	GetPetStats(ctx context.Context, id *big.Int) (contract.PetStats, error)
	GetPetType(ctx context.Context, id *big.Int) (uint8, error)
}

// Fighter is a pet in battle.
type Fighter struct {
	Pet    pets.Record
	HP     int
	Attack int
	Speed  int
	Moves  []Move
}

// Fainted reports whether the fighter is out.
func (f Fighter) Fainted() bool {
	return f.HP <= 0
}

// Arena starts battles against pets read from the contract.
type Arena struct {
	reader Reader
	rng    *rand.Rand
	log    *zap.Logger
}

// NewArena returns an arena. src drives speeds and opponent moves; nil
// uses a random seed.
func NewArena(reader Reader, src rand.Source, log *zap.Logger) *Arena {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Arena{reader: reader, rng: rand.New(src), log: log.Named("battle")}
}

// Start reads opponentID and sets up a battle against player. The faster pet
// moves first; ties go to the player.
func (a *Arena) Start(ctx context.Context, player pets.Record, opponentID string) (*Battle, error) {
	id, err := pets.ParseID(opponentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpponentFetch, err)
	}
	if a.reader == nil {
		return nil, fmt.Errorf("%w: %w", ErrOpponentFetch, contract.ErrContractNotInitialized)
	}
	stats, err := a.reader.GetPetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpponentFetch, err)
	}
	petType, err := a.reader.GetPetType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpponentFetch, err)
	}
	opponent := pets.FromStats(id, stats, petType)

	b := &Battle{
		player:   a.fighter(player),
		opponent: a.fighter(opponent),
		rng:      a.rng,
	}
	b.turn = Player
	if b.opponent.Speed > b.player.Speed {
		b.turn = Opponent
	}
	b.logf("Battle started! %s vs %s", b.player.Pet.Name, b.opponent.Pet.Name)
	a.log.Debug("battle started", zap.String("player", player.ID), zap.String("opponent", opponent.ID),
		zap.Int("player_speed", b.player.Speed), zap.Int("opponent_speed", b.opponent.Speed))
	return b, nil
}

func (a *Arena) fighter(p pets.Record) Fighter {
	return Fighter{
		Pet:    p,
		HP:     StartHP,
		Attack: Attack,
		Speed:  a.rng.IntN(MaxSpeed) + 1,
		Moves:  Moves(p.Type),
	}
}

// Battle is one fight. It is not safe for concurrent use.
type Battle struct {
	player   Fighter
	opponent Fighter
	turn     Side
	over     bool
	winner   Side
	log      []string
	rng      *rand.Rand
}

// Player returns the player's fighter.
func (b *Battle) Player() Fighter { return b.player }

// Opponent returns the opponent's fighter.
func (b *Battle) Opponent() Fighter { return b.opponent }

// Turn returns whose move it is.
func (b *Battle) Turn() Side { return b.turn }

// Over reports whether a fighter has fainted.
func (b *Battle) Over() bool { return b.over }

// Winner returns the winning side once the battle is over.
func (b *Battle) Winner() (Side, bool) { return b.winner, b.over }

// Log returns the battle log.
func (b *Battle) Log() []string {
	return append([]string(nil), b.log...)
}

// PlayerMove plays the player's move i.
func (b *Battle) PlayerMove(i int) (Move, error) {
	if err := b.check(Player); err != nil {
		return Move{}, err
	}
	if i < 0 || i >= len(b.player.Moves) {
		return Move{}, fmt.Errorf("%w: %d", ErrInvalidMove, i)
	}
	m := b.player.Moves[i]
	b.strike(&b.player, &b.opponent, m, Opponent)
	return m, nil
}

// OpponentMove plays a random opponent move.
func (b *Battle) OpponentMove() (Move, error) {
	if err := b.check(Opponent); err != nil {
		return Move{}, err
	}
	m := b.opponent.Moves[b.rng.IntN(len(b.opponent.Moves))]
	b.strike(&b.opponent, &b.player, m, Player)
	return m, nil
}

func (b *Battle) check(side Side) error {
	if b.over {
		return ErrBattleOver
	}
	if b.turn != side {
		return ErrNotYourTurn
	}
	return nil
}

func (b *Battle) strike(attacker, defender *Fighter, m Move, next Side) {
	defender.HP = max(0, defender.HP-attacker.Attack)
	b.logf("%s used %s!", attacker.Pet.Name, m.Name)
	if defender.Fainted() {
		b.over = true
		b.winner = b.turn
		b.logf("%s fainted! %s wins!", defender.Pet.Name, attacker.Pet.Name)
		return
	}
	b.turn = next
}

func (b *Battle) logf(format string, args ...any) {
	b.log = append(b.log, fmt.Sprintf(format, args...))
}
