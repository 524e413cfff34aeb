package utils

import "crypto/rand"

// codeAlphabet is the character set for confirmation codes:
// uppercase letters and digits, so codes survive being read out
// loud or typed from a projector slide.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewConfirmationCode returns a random alphanumeric code of length
// n.  Codes are per-event secrets; uniqueness across events is
// enforced by the caller against the database, with bounded
// retries on collision.
func NewConfirmationCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
