package battle

import "github.com/Mohsinsiddi/cryptopet/internal/pets"

// Move is one attack.
type Move struct {
	Name        string
	Description string
	Type        pets.Type
	Animation   string
}

var movesByType = map[pets.Type][]Move{
	pets.Fire: {
		{Name: "Flame Burst", Description: "A powerful burst of flames", Type: pets.Fire, Animation: "explosion"},
		{Name: "Heat Wave", Description: "A wave of scorching heat", Type: pets.Fire, Animation: "wave"},
		{Name: "Ember Strike", Description: "A quick strike of burning embers", Type: pets.Fire, Animation: "particles"},
		{Name: "Inferno Spin", Description: "A spinning vortex of fire", Type: pets.Fire, Animation: "rotate"},
	},
	pets.Water: {
		{Name: "Aqua Jet", Description: "A high-speed water projectile", Type: pets.Water, Animation: "projectile"},
		{Name: "Tidal Wave", Description: "A massive wave of water", Type: pets.Water, Animation: "wave"},
		{Name: "Bubble Blast", Description: "A stream of explosive bubbles", Type: pets.Water, Animation: "particles"},
		{Name: "Whirlpool", Description: "A swirling vortex of water", Type: pets.Water, Animation: "rotate"},
	},
	pets.Grass: {
		{Name: "Vine Whip", Description: "Sharp vines that slash the opponent", Type: pets.Grass, Animation: "slash"},
		{Name: "Leaf Storm", Description: "A storm of sharp leaves", Type: pets.Grass, Animation: "particles"},
		{Name: "Solar Beam", Description: "A concentrated beam of solar energy", Type: pets.Grass, Animation: "beam"},
		{Name: "Petal Dance", Description: "A whirlwind of flower petals", Type: pets.Grass, Animation: "rotate"},
	},
}

// Moves returns the four moves of type t. Unknown types fight with fire moves.
func Moves(t pets.Type) []Move {
	m, ok := movesByType[t]
	if !ok {
		m = movesByType[pets.Fire]
	}
	return append([]Move(nil), m...)
}
