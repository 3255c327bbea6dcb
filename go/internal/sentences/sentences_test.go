package sentences

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPicker_ReturnsFromList(t *testing.T) {
	list := []string{"one", "two", "three"}
	p := NewPicker(list, 7)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := p.Pick()
		assert.Contains(t, list, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 1, "picker should vary")
}

func TestPicker_DefaultsWhenEmpty(t *testing.T) {
	p := NewPicker(nil, 1)
	assert.Contains(t, Defaults(), p.Pick())
}

func TestDefaults_AreUsable(t *testing.T) {
	for _, s := range Defaults() {
		assert.NotEmpty(t, s)
		assert.NotContains(t, s, "  ")
	}
}
