package room

import (
	"crypto/rand"
	"math/big"
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength  = 6

	// maxCodeAttempts bounds collision retries. Running out means the live
	// room set has effectively exhausted the code space, which is treated
	// as a fatal resource condition.
	maxCodeAttempts = 128
)

// randomCode draws a uniformly random fixed-length alphanumeric code.
func randomCode() string {
	b := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken.
			panic("room: crypto/rand failed: " + err.Error())
		}
		b[i] = codeCharset[n.Int64()]
	}
	return string(b)
}
