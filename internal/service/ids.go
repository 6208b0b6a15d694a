package service

import (
	"encoding/hex"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

const idHexLen = 16

// newID draws a prefixed random id from rng so ids follow the run's seed
func newID(rng *rand.Rand, prefix string) (string, error) {
	u, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return prefix + hex.EncodeToString(u[:])[:idHexLen], nil
}

// SubSeed derives an independent seed for task i of a run (splitmix64)
func SubSeed(seed int64, i int) int64 {
	z := uint64(seed) + uint64(i+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}
