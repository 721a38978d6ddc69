package utils

import (
	"crypto/rand"
	"log"
	"math/big"

	"gorm.io/gorm"
)

// CodeAlphabet is the character set ride codes are drawn from. 36^6 codes
// keep the collision probability negligible while staying easy to read out
// over the phone.
const (
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6
)

// GenerateCode draws a random ride code. crypto/rand, not math/rand: the
// code doubles as the join token, so it must not be guessable.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = CodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// GenerateUniqueCode draws codes until one is free in the rides table.
// Collisions are astronomically rare, so the loop is unbounded; repeated
// collisions are logged as a signal that something else is wrong.
func GenerateUniqueCode(db *gorm.DB) (string, error) {
	for attempt := 1; ; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := db.Table("rides").Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}

		log.Printf("Ride code collision on %q (attempt %d)", code, attempt)
	}
}
