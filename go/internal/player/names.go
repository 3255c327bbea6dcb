package player

import (
	"math/rand/v2"
	"sync"
)

var adjectives = []string{
	"Swift", "Clever", "Brave", "Quiet", "Lucky", "Nimble", "Bold", "Calm",
	"Eager", "Fierce", "Gentle", "Happy", "Jolly", "Keen", "Mighty", "Noble",
	"Quick", "Rapid", "Sly", "Witty",
}

var nouns = []string{
	"Falcon", "Otter", "Panda", "Tiger", "Fox", "Badger", "Eagle", "Lynx",
	"Raven", "Wolf", "Heron", "Koala", "Marten", "Puffin", "Gecko", "Bison",
	"Cobra", "Moose", "Owl", "Hare",
}

// NameGenerator produces "Adjective Noun" display names.
type NameGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewNameGenerator(seed uint64) *NameGenerator {
	return &NameGenerator{rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (g *NameGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return adjectives[g.rng.IntN(len(adjectives))] + " " + nouns[g.rng.IntN(len(nouns))]
}
