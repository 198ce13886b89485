// Package rand generates short opaque tokens for observer handles.
// Not security-critical; handles only need to be unique enough to key
// the hub registry for a connection's lifetime.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	charsetLen = len(charset)

	seeded = newSeededRand()
)

func newSeededRand() *lockedRand {
	seed := make([]byte, 16)
	if _, err := cryptorand.Read(seed); err != nil {
		panic("unreachable")
	}
	//nolint:gosec // no security required
	return &lockedRand{
		rng: rand.New(rand.NewSource(int64(
			binary.LittleEndian.Uint64(seed[:8]) ^
				binary.LittleEndian.Uint64(seed[8:]),
		))),
	}
}

type lockedRand struct {
	mut sync.Mutex
	rng *rand.Rand
}

func (lr *lockedRand) fill(buf []byte) {
	lr.mut.Lock()
	defer lr.mut.Unlock()
	for i := range buf {
		buf[i] = charset[lr.rng.Intn(charsetLen)]
	}
}

// NewToken returns a random alphanumeric token of the given length.
func NewToken(length int) string {
	buf := make([]byte, length)
	seeded.fill(buf)
	return string(buf)
}
