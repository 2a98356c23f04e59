package room

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the reduced room-code alphabet: uppercase letters minus I/O
// and digits minus 0/1, so codes survive being read aloud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed room code length.
const CodeLength = 6

// RandSource is the randomness needed by the code generator, satisfied by
// *rand.Rand and by deterministic test sources.
type RandSource interface {
	IntN(n int) int
}

// CodeGenerator produces room codes with configurable randomness.
type CodeGenerator struct {
	src RandSource
}

// NewCodeGenerator creates a generator. A nil source falls back to
// crypto/rand for production use.
func NewCodeGenerator(src RandSource) *CodeGenerator {
	if src == nil {
		src = cryptoSource{}
	}
	return &CodeGenerator{src: src}
}

// Generate returns a fresh 6-character room code.
func (g *CodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(Alphabet[g.src.IntN(len(Alphabet))])
	}
	return b.String()
}

// ValidateCode checks that a code has the right length and alphabet.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("room code must be exactly %d characters, got %d", CodeLength, len(code))
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return fmt.Errorf("invalid character %c at position %d", code[i], i)
		}
	}
	return nil
}

// cryptoSource adapts crypto/rand to the RandSource interface.
type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("failed to generate random int: " + err.Error())
	}
	return int(v.Int64())
}
