package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Length is the length of a v3 onion address without the
	// ".onion" suffix: 56 characters of base32-encoded data.
	OnionV3Length = 56

	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
// Base32 uses lowercase a-z and digits 2-7.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// onionV3ContentPattern matches v3 addresses within larger text content.
var onionV3ContentPattern = regexp.MustCompile(`[a-z2-7]{56}\.onion`)

// checksumPrefix is the prefix used in v3 onion address checksum
// calculation, per the Tor rendezvous specification.
var checksumPrefix = []byte(".onion checksum")

// IsValidV3Address checks if the given address is a valid v3 onion
// address. It performs full checksum verification rather than just
// pattern matching, which catches typos and corrupted addresses the
// same way Tor itself does when connecting. Target seeding uses this
// to reject dead-on-arrival onion hosts before they enter the
// schedule.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)

	if !onionV3Pattern.MatchString(address) {
		return false
	}

	onionPart := strings.TrimSuffix(address, OnionSuffix)

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(onionPart))
	if err != nil {
		return false
	}

	// 32 bytes ed25519 public key + 2 bytes checksum + 1 byte version
	if len(decoded) != 35 {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]

	if version != OnionV3Version {
		return false
	}

	expectedChecksum := computeV3Checksum(pubkey, version)

	return checksum[0] == expectedChecksum[0] && checksum[1] == expectedChecksum[1]
}

// computeV3Checksum computes the first 2 bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)

	return hash[:2]
}

// ExtractV3Addresses finds all v3 onion addresses in the given text and
// returns them deduplicated. The generic scraper uses this to pull
// onion mirrors out of leak entries, where the same address usually
// appears several times.
func ExtractV3Addresses(content string) []string {
	content = strings.ToLower(content)
	matches := onionV3ContentPattern.FindAllString(content, -1)

	seen := make(map[string]bool)
	var result []string

	for _, match := range matches {
		if !seen[match] {
			seen[match] = true
			result = append(result, match)
		}
	}

	return result
}
