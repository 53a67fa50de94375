package transport

import (
	"encoding/base32"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

var v3AddressPattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// IsOnionURL reports whether raw is an absolute URL whose host is a .onion name.
func IsOnionURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".onion")
}

// OnionSeeds returns the subset of seeds that point at .onion hosts.
func OnionSeeds(seeds []string) []string {
	var onions []string
	for _, s := range seeds {
		if IsOnionURL(s) {
			onions = append(onions, s)
		}
	}
	return onions
}

// IsValidV3Address reports whether host is a well-formed v3 onion name with
// a correct checksum and version byte.
//
// Layout: base32(pubkey[32] || checksum[2] || version[1]) + ".onion", where
// checksum = SHA3-256(".onion checksum" || pubkey || version)[:2].
func IsValidV3Address(host string) bool {
	host = strings.ToLower(host)
	if !v3AddressPattern.MatchString(host) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(host, ".onion")))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != 0x03 {
		return false
	}
	want := v3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// V3AddressFromPublicKey builds the onion name for a 32-byte ed25519 key.
// It returns "" for keys of the wrong length.
func V3AddressFromPublicKey(pubkey []byte) string {
	if len(pubkey) != 32 {
		return ""
	}
	sum := v3Checksum(pubkey, 0x03)
	raw := make([]byte, 0, 35)
	raw = append(raw, pubkey...)
	raw = append(raw, sum[0], sum[1], 0x03)
	return strings.ToLower(base32.StdEncoding.EncodeToString(raw)) + ".onion"
}

func v3Checksum(pubkey []byte, version byte) [32]byte {
	data := make([]byte, 0, 15+len(pubkey)+1)
	data = append(data, ".onion checksum"...)
	data = append(data, pubkey...)
	data = append(data, version)
	return sha3.Sum256(data)
}
