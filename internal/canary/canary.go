// Package canary assigns messages to the staged rollout deterministically.
package canary

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// InRollout reports whether the message is selected for live actions at the
// given rollout percentage. Membership is a pure function of the message
// identifier and percent: the first 32 bits of sha256(messageID), reduced
// modulo 100, are compared against floor(percent). The same identifier and
// percentage therefore always land in the same bucket, across restarts and
// across implementations that follow the same hash convention.
func InRollout(messageID string, percent float64) bool {
	if percent >= 100.0 {
		return true
	}
	if percent <= 0.0 {
		return false
	}
	digest := sha256.Sum256([]byte(messageID))
	bucket := binary.BigEndian.Uint32(digest[:4]) % 100
	return bucket < uint32(math.Floor(percent))
}
