// Package pets keeps the connected account's pets in sync with the chain.
package pets

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/cryptopet/internal/contract"
)

// Type is a pet's element.
type Type uint8

const (
	Fire Type = iota
	Water
	Grass
)

func (t Type) String() string {
	switch t {
	case Fire:
		return "Fire"
	case Water:
		return "Water"
	case Grass:
		return "Grass"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Record is the client-side view of one pet.
type Record struct {
	ID              string
	Name            string
	Happiness       int
	Hunger          int
	Birthdate       time.Time
	LastInteraction time.Time
	Level           int
	XP              int
	Type            Type
	HasNFT          bool
	ImageURI        string
}

// Placeholder is shown when no pet is selected.
func Placeholder() Record {
	return Record{}
}

// FromStats converts contract stats for pet id.
func FromStats(id *big.Int, s contract.PetStats, t uint8) Record {
	return Record{
		ID:              id.String(),
		Name:            s.Name,
		Happiness:       toInt(s.Happiness),
		Hunger:          toInt(s.Hunger),
		Birthdate:       toTime(s.BirthTime),
		LastInteraction: toTime(s.LastUpdate),
		Level:           toInt(s.Level),
		XP:              toInt(s.XP),
		Type:            Type(t),
		HasNFT:          true,
	}
}

// ParseID parses a decimal token id.
func ParseID(id string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("invalid pet id %q", id)
	}
	return n, nil
}

func toInt(n *big.Int) int {
	if n == nil || !n.IsInt64() {
		return 0
	}
	return int(n.Int64())
}

func toTime(n *big.Int) time.Time {
	if n == nil || n.Sign() == 0 || !n.IsInt64() {
		return time.Time{}
	}
	return time.Unix(n.Int64(), 0)
}
