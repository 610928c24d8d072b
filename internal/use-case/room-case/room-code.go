package room_service

import (
	"crypto/rand"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 5
)

// GenerateRoomCode returns a code without the easily confused 0/O and 1/I.
// The alphabet has 32 symbols, so taking a byte modulo its size is unbiased.
func GenerateRoomCode() string {
	buf := make([]byte, codeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
