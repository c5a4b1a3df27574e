package utils

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Avg returns the arithmetic mean of data, 0 for an empty slice.
func Avg(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopStdDev returns the population standard deviation of data, 0 when
// fewer than two points are available.
func PopStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.PopStdDev(data, nil)
}

// Round2 rounds to two decimal places, the precision used for monetary
// values in the snapshot.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// RetryWithBackoff runs op, retrying on failure with exponential backoff
// and jitter. maxRetries is the number of retries after the first attempt.
func RetryWithBackoff[T any](op func() (T, error), maxRetries int) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseDelay := 100 * time.Millisecond
	maxDelay := 5 * time.Second

	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err := op()
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		// delay = min(maxDelay, baseDelay * 2^attempt), jittered into
		// [delay/2, delay].
		delay := baseDelay << attempt
		if delay > maxDelay {
			delay = maxDelay
		}
		half := delay / 2
		jitter := half + time.Duration(rand.Int63n(int64(delay-half)+1))
		time.Sleep(jitter)
	}

	return zero, fmt.Errorf("after %d retries, last error: %w", maxRetries, lastErr)
}
