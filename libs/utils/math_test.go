package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	data := []float64{4, 1, 3, 2}

	assert.Equal(t, 4.0, Max(data...))
	assert.Equal(t, 1.0, Min(data...))
	assert.Equal(t, 2.5, Avg(data...))
	assert.Equal(t, 2.5, Median(data...))
	assert.Equal(t, []float64{4, 1, 3, 2}, data, "input is not reordered")

	assert.Equal(t, 3.0, Median(5, 1, 3))

	for _, f := range []func(...float64) float64{Max, Min, Avg, Median} {
		assert.Equal(t, -1.0, f())
	}
}
