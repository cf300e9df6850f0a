package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	labels := Catalog()

	require.Len(t, labels, 17)
	assert.Equal(t, "09:00 AM", labels[0])
	assert.Equal(t, "12:00 PM", labels[6])
	assert.Equal(t, "02:00 PM", labels[7])
	assert.Equal(t, "06:30 PM", labels[len(labels)-1])
	assert.NotContains(t, labels, "12:30 PM")
	assert.NotContains(t, labels, "01:30 PM")
	assert.NotContains(t, labels, "07:00 PM")
}

func TestCatalogReturnsCopy(t *testing.T) {
	labels := Catalog()
	labels[0] = "mutated"

	assert.Equal(t, "09:00 AM", Catalog()[0])
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10:00 AM", "10:00 AM", true},
		{"9:00 AM", "09:00 AM", true},
		{" 02:30 pm ", "02:30 PM", true},
		{"12:00 PM", "12:00 PM", true},
		{"12:30 PM", "", false},
		{"07:00 PM", "", false},
		{"10:15 AM", "", false},
		{"10:00", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, 1, d.Day())

	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)

	_, err = ParseDate("2025-02-30")
	assert.Error(t, err)
}

func TestAvailable(t *testing.T) {
	free := Available([]string{"10:00 AM", "9:00 AM", "05:00 PM"})

	assert.Len(t, free, len(Catalog())-3)
	assert.NotContains(t, free, "10:00 AM")
	assert.NotContains(t, free, "09:00 AM")
	assert.NotContains(t, free, "05:00 PM")
	assert.Equal(t, "09:30 AM", free[0])

	// every unbooked label survives, in catalog order
	var prev = -1
	for _, label := range free {
		i := index[label]
		assert.Greater(t, i, prev)
		prev = i
	}
}

func TestAvailableNothingBooked(t *testing.T) {
	assert.Equal(t, Catalog(), Available(nil))
}
