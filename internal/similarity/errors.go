package similarity

import (
	"errors"
	"fmt"
)

// ErrEmptyGuess rejects guesses that normalize to nothing.
var ErrEmptyGuess = errors.New("empty guess")

// UnknownWordError rejects guesses whose canonical form is outside the
// vocabulary. The word is echoed back so the player sees what was rejected.
type UnknownWordError struct {
	Word string
}

func (e UnknownWordError) Error() string {
	return fmt.Sprintf("unrecognized word %q", e.Word)
}
