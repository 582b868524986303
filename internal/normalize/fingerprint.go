package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes cleaned description text. Equal cleaned text always
// yields an equal fingerprint, so re-scrapes of an unchanged posting are
// detected without diffing bodies.
func Fingerprint(cleanDesc string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(cleanDesc)))
	return hex.EncodeToString(sum[:])
}

// JobIdentity builds the dedup key for a posting. A fingerprint change with
// the same identity is a revision of the same posting, not a new one.
func JobIdentity(companyIdentity, title, location string) string {
	return companyIdentity + "|" + TitleKey(title) + "|" + LocationKey(location)
}
