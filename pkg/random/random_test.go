package random

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCode(t *testing.T) {
	t.Run("length_and_alphabet", func(t *testing.T) {
		gen := NewGenerator(1)

		for _, length := range []int{1, 6, 10} {
			code := gen.NewCode(length)
			assert.Len(t, code, length)
			for _, r := range code {
				assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected character %q", r)
			}
		}
	})

	t.Run("same_seed_same_sequence", func(t *testing.T) {
		a := NewGenerator(99)
		b := NewGenerator(99)

		for i := 0; i < 10; i++ {
			assert.Equal(t, a.NewCode(6), b.NewCode(6))
		}
	})

	t.Run("concurrent_use", func(t *testing.T) {
		gen := NewGenerator(5)

		var wg sync.WaitGroup
		codes := make([]string, 100)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				codes[i] = gen.NewCode(6)
			}(i)
		}
		wg.Wait()

		for _, code := range codes {
			assert.Len(t, code, 6)
		}
	})
}
