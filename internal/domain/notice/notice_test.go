package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Key(t *testing.T) {
	assert.Equal(t, "https://x/1", Record{Title: "Road works", Link: "https://x/1"}.Key())
	assert.Equal(t, "Road works", Record{Title: "Road works"}.Key())
}

func TestWindowEndingOn(t *testing.T) {
	oslo := time.FixedZone("CEST", 2*60*60)
	day := time.Date(2024, 3, 1, 8, 59, 30, 0, oslo)

	w := WindowEndingOn(day, 1, map[string]string{"cpv": "45"})
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, oslo), w.From)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, oslo), w.To)
	assert.Equal(t, "45", w.Filters["cpv"])

	same := WindowEndingOn(day, -3, nil)
	assert.Equal(t, same.To, same.From)
}
