package models

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidProfile = errors.New("invalid profile id")

var profilePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// NormalizeProfile lowercases and trims a profile id so that "Pablo" and
// "pablo" share one ledger. Ids are used as path segments by some stores,
// hence the restricted alphabet.
func NormalizeProfile(id string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(id))
	if !profilePattern.MatchString(p) {
		return "", ErrInvalidProfile
	}
	return p, nil
}
