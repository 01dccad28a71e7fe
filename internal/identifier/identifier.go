// Package identifier validates URLs and short codes, generates short codes and
// ids, and provides the simulated requester metadata attached to click events.
package identifier

import (
	"fmt"
	"math/rand"
	"net/url"
	"regexp"

	"github.com/vadimbarashkov/url-shortener-demo/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the set of characters short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// GeneratedCodeLength is the length of generated short codes.
	GeneratedCodeLength = 6
	// MinCodeLength and MaxCodeLength bound custom short codes.
	MinCodeLength = 3
	MaxCodeLength = 20
)

var shortCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidateURL reports whether candidate is a structurally valid absolute URL.
func ValidateURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

// ValidateShortCode reports whether code is 3-20 ASCII letters or digits.
func ValidateShortCode(code string) bool {
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}
	return shortCodeRe.MatchString(code)
}

// GenerateShortCode draws GeneratedCodeLength characters uniformly from Alphabet.
// The result is not checked against existing records.
func GenerateShortCode() string {
	b := make([]byte, GeneratedCodeLength)
	for i := range b {
		b[i] = Alphabet[rand.Intn(len(Alphabet))]
	}
	return string(b)
}

// IsShortCodeUnique reports whether no record in records uses code,
// whether or not that record is active or expired.
func IsShortCodeUnique(code string, records []entity.Record) bool {
	for i := range records {
		if records[i].ShortCode == code {
			return false
		}
	}
	return true
}

// NewID returns an opaque unique identifier.
func NewID() string {
	id, err := gonanoid.New()
	if err != nil {
		// gonanoid only fails when the system entropy source is unavailable.
		return fmt.Sprintf("id-%d-%d", rand.Int63(), rand.Int63())
	}
	return id
}

var coarseLocations = []string{
	"New York, US",
	"London, UK",
	"Berlin, DE",
	"Tokyo, JP",
	"Sydney, AU",
	"Toronto, CA",
	"Mumbai, IN",
	"Sao Paulo, BR",
}

// CoarseLocation returns a placeholder location picked from a fixed list.
// It is a simulation only and carries no real geolocation.
func CoarseLocation() string {
	return coarseLocations[rand.Intn(len(coarseLocations))]
}

// SimulatedIP returns a random dotted-quad address.
// It is a simulation only and is not the requester's address.
func SimulatedIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		rand.Intn(254)+1, rand.Intn(256), rand.Intn(256), rand.Intn(254)+1)
}
