package words

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseRepresentative(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		candidates []string
		canonical  string
		want       string
	}{
		{"canonical form wins", []string{"dogs", "dog"}, "dog", "dog"},
		{"least inflected wins", []string{"running", "runs"}, "run", "running"},
		{"equal scores break lexically", []string{"wished", "washed"}, "wish", "washed"},
		{"lexical tiebreak", []string{"bats", "cats"}, "at", "bats"},
		{"empty candidates fall back to canonical", nil, "word", "word"},
		{"intrinsic s not penalized", []string{"chess", "chesses"}, "chess", "chess"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ChooseRepresentative(tc.candidates, tc.canonical))
		})
	}
}

// The representative must not depend on the order words were loaded in.
func TestChooseRepresentativeOrderIndependent(t *testing.T) {
	t.Parallel()

	candidates := []string{"guessing", "guessed", "guesses", "guess"}
	want := ChooseRepresentative(candidates, "guess")

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, ChooseRepresentative(shuffled, "guess"))
	}
}
