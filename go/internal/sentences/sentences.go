// Package sentences supplies the target texts players race to type.
package sentences

import (
	"math/rand/v2"
	"sync"
)

var defaultSentences = []string{
	"The quick brown fox jumps over the lazy dog near the riverbank",
	"Pack my box with five dozen liquor jugs and ship them today",
	"How vexingly quick daft zebras jump over the sleeping fox",
	"The five boxing wizards jump quickly through the dark forest",
	"A journey of a thousand miles begins with a single step forward",
	"She sells seashells by the seashore every morning before dawn",
	"The early bird catches the worm but the second mouse gets the cheese",
	"All that glitters is not gold but it still shines very brightly",
	"Every great dream begins with a dreamer who never gives up hope",
	"In the middle of difficulty lies opportunity for those who seek it",
	"Success is not final and failure is not fatal so keep moving forward",
	"Life is what happens when you are busy making other plans today",
	"Fresh bread and strong coffee make every cold morning feel warmer",
	"A calm sea never made a skilled sailor so welcome the rough waves",
	"Small steady steps carry you further than a single reckless leap",
}

// Defaults returns a copy of the built-in sentence list.
func Defaults() []string {
	return append([]string(nil), defaultSentences...)
}

// Picker chooses uniformly at random from a fixed list.
type Picker struct {
	mu        sync.Mutex
	rng       *rand.Rand
	sentences []string
}

// NewPicker returns a picker over list, or over the built-in list when empty.
func NewPicker(list []string, seed uint64) *Picker {
	if len(list) == 0 {
		list = defaultSentences
	}
	return &Picker{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		sentences: list,
	}
}

// Pick returns a sentence.
func (p *Picker) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sentences[p.rng.IntN(len(p.sentences))]
}
