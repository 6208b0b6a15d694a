package catalog

import "github.com/brianvoe/gofakeit/v6"

// fallbackFakerSeed replaces a mixed seed that comes out as zero
const fallbackFakerSeed = 0x2545F4914F6CDD1D

// NewFaker returns a faker whose output depends only on seed. gofakeit seeds
// from crypto/rand when given 0, so the seed is mixed first and a zero result
// is replaced.
func NewFaker(seed int64) *gofakeit.Faker {
	return gofakeit.New(fakerSeed(seed))
}

func fakerSeed(seed int64) int64 {
	z := uint64(seed) ^ 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	if z == 0 {
		return fallbackFakerSeed
	}
	return int64(z)
}
