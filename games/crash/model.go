package crash

import (
	"crypto/rand"
	"math"
	"math/big"

	"crash-go/utils"
)

// DrawCrashMultiplier samples the multiplier a round will crash at. Rounds
// are a harsh/lucky mixture: 65% draw 1 + Exp(mean 0.8) and crash early,
// the rest draw 1 + Exp(mean 3.0) and can run long.
//
// The draw decides payouts, so it uses the system CSPRNG; players must not
// be able to predict or replay it.
func DrawCrashMultiplier() float64 {
	if randFloat() < utils.CrashMixPHarsh {
		return 1.0 + drawExponential(utils.CrashMeanHarsh)
	}
	return 1.0 + drawExponential(utils.CrashMeanLucky)
}

// drawExponential inverts the exponential CDF over a crypto-uniform sample.
func drawExponential(mean float64) float64 {
	return -mean * math.Log(randFloat())
}

const randPrecision = 1 << 53

// randFloat returns a uniform float64 in (0, 1] from crypto/rand. The open
// lower bound keeps the log in drawExponential finite.
func randFloat() float64 {
	v, err := rand.Int(rand.Reader, big.NewInt(randPrecision))
	if err != nil {
		// The platform RNG is broken; fail toward the house rather than
		// hand out a guessable multiplier.
		return 1.0
	}
	return (float64(v.Int64()) + 1) / randPrecision
}
