// internal/game/registry.go
package game

import (
	"sort"

	"github.com/jason-s-yu/minigames/internal/apperr"
)

// registry is filled once at init and only read afterwards.
var registry = map[string]Definition{}

func register(d Definition) {
	if _, dup := registry[d.ID()]; dup {
		panic("game: duplicate definition " + d.ID())
	}
	registry[d.ID()] = d
}

func init() {
	register(TicTacToe)
	register(Nim)
	register(ConnectFour)
}

// Lookup resolves a game id to its definition.
func Lookup(gameID string) (Definition, error) {
	d, ok := registry[gameID]
	if !ok {
		return nil, apperr.ErrUnsupportedGame
	}
	return d, nil
}

// IDs lists the registered game ids in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
