package internal

import (
	"crypto/rand"
	"io"
	"math/big"
)

// TokenLength is the number of base58 characters in an opaque token
// (about 140 bits of entropy).
const TokenLength = 24

// base58 alphabet: no 0, O, I or l, so tokens survive being read aloud or
// copied out of an email.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var tokenReader io.Reader = rand.Reader

// NewToken returns a fresh opaque token. It panics if the system random source
// fails, since no safe token can be produced without it.
func NewToken() string {
	tok, err := newTokenFrom(tokenReader, TokenLength)
	if err != nil {
		panic("internal: random source unavailable: " + err.Error())
	}
	return tok
}

func newTokenFrom(r io.Reader, n int) (string, error) {
	max := big.NewInt(int64(len(base58Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		out[i] = base58Alphabet[idx.Int64()]
	}
	return string(out), nil
}
