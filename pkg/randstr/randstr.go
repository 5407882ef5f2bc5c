package randstr

import (
	"crypto/rand"
	"math/big"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// RoomIDLength is long enough that collisions are negligible at room scale.
	RoomIDLength = 8
)

type Generator struct {
	alphabet string
}

func New() *Generator {
	return &Generator{alphabet: alphabet}
}

// Generate returns a random string of n characters from the generator alphabet.
func (g *Generator) Generate(n int) string {
	max := big.NewInt(int64(len(g.alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = g.alphabet[idx.Int64()]
	}

	return string(b)
}
