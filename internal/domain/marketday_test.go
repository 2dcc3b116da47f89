package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextTradingDay(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "saturday advances to monday",
			in:   time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday advances to monday",
			in:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "wednesday unchanged",
			in:   time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "friday unchanged",
			in:   time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextTradingDay(tc.in))
		})
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 6, 11, 9, 30, 0, 0, time.UTC)
	b := time.Date(2025, 6, 11, 20, 0, 0, 0, time.UTC)
	c := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, c))
}
