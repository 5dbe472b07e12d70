package randutil

import (
	"fmt"
	"math/rand"
	"net"
)

const _text = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Text returns randomly generated alphanumeric text of length n.
func Text(n uint64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = _text[rand.Intn(len(_text))]
	}
	return b
}

// Blob returns randomly generated bytes of length n.
func Blob(n uint64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	return b
}

// IP returns a randomly generated IPv4 address.
func IP() net.IP {
	return net.ParseIP(fmt.Sprintf(
		"%d.%d.%d.%d",
		1+rand.Intn(254), rand.Intn(256), rand.Intn(256), 1+rand.Intn(254)))
}

// Port returns a randomly generated port.
func Port() int {
	return 1024 + rand.Intn(65535-1024)
}
