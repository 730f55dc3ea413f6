package waiter

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// baseDelay seeds the exponential ceiling when minDelay is zero.
const baseDelay = time.Second

// ComputeDelay returns the delay to sleep after attempt (1-based).
//
// The first attempt waits minDelay. Later attempts wait a uniformly
// jittered duration between minDelay and minDelay*2^(attempt-1), the latter
// capped at maxDelay. When the delay would leave no more than minDelay of
// remaining budget it is shortened so one last attempt fits before the
// deadline. The result never exceeds maxDelay and is zero once remaining is
// exhausted.
func ComputeDelay(attempt int64, minDelay, maxDelay, remaining time.Duration) (time.Duration, error) {
	return computeDelay(attempt, minDelay, maxDelay, remaining, rand.Int64N)
}

func computeDelay(attempt int64, minDelay, maxDelay, remaining time.Duration, jitter func(int64) int64) (time.Duration, error) {
	if attempt < 1 {
		return 0, fmt.Errorf("attempt must be at least 1, got %d", attempt)
	}
	if minDelay < 0 || maxDelay < 0 {
		return 0, fmt.Errorf("delays must not be negative, got min %v and max %v", minDelay, maxDelay)
	}
	if minDelay > maxDelay {
		return 0, fmt.Errorf("minimum delay %v must be less than or equal to maximum delay %v", minDelay, maxDelay)
	}
	if remaining <= 0 {
		return 0, nil
	}

	delay := minDelay
	if attempt > 1 {
		ceiling := exponentialCeiling(attempt, minDelay, maxDelay)
		if span := int64(ceiling - minDelay); span > 0 && jitter != nil {
			n := span
			if n < math.MaxInt64 {
				n++ // inclusive of the ceiling
			}
			delay = minDelay + time.Duration(jitter(n))
		}
	}

	if remaining-delay <= minDelay {
		delay = remaining - minDelay
	}
	return clampDelay(delay, maxDelay), nil
}

func exponentialCeiling(attempt int64, minDelay, maxDelay time.Duration) time.Duration {
	base := minDelay
	if base == 0 {
		base = baseDelay
	}
	shift := attempt - 1
	if shift >= 62 || base > maxDelay>>shift {
		return maxDelay
	}
	if c := base << shift; c < maxDelay {
		return c
	}
	return maxDelay
}

func clampDelay(d, maxDelay time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
