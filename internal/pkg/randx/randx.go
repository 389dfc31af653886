/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to generate client-side message ids (UUID v4), guest user ids, nonces for
development tokens and default nicknames.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// GuestIDPrefix is the prefix of client-generated guest ids.
	GuestIDPrefix = "guest_"

	// GuestIDRawLength is the fixed length of the Base62 part of a guest id.
	GuestIDRawLength = 8
)

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// MessageIDFor generates a message id prefixed with the id of its sender, as the backend expects
// for client-side ids.
func MessageIDFor(userID string) string {
	return userID + "-" + MessageID()
}

// GuestID generates a guest user id.
func GuestID() (string, error) {
	raw, err := Base62(GuestIDRawLength)
	if err != nil {
		return "", err
	}
	return GuestIDPrefix + raw, nil
}

// IsValidGuestID checks if the given string is a valid guest id.
func IsValidGuestID(id string) bool {
	rawID, ok := strings.CutPrefix(id, GuestIDPrefix)
	if !ok || len(rawID) != GuestIDRawLength {
		return false
	}

	for _, char := range rawID {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// UserNickname generates a random nickname with a "User_" prefix and 6 random Base62 characters.
func UserNickname() (string, error) {
	raw, err := Base62(6)
	if err != nil {
		return "", err
	}
	return "User_" + raw, nil
}
