package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer()

	text1, fp1 := n.Normalize("  Total   REVENUE last month ", "default", "llama3", "UTC", fixedNow)
	text2, fp2 := n.Normalize("total revenue last month", "default", "llama3", "UTC", fixedNow)

	assert.Equal(t, text1, text2)
	assert.Equal(t, fp1, fp2)
}

func TestFingerprintScopedByRoutingProfile(t *testing.T) {
	n := NewNormalizer()

	_, fp1 := n.Normalize("total revenue", "default", "llama3", "UTC", fixedNow)
	_, fp2 := n.Normalize("total revenue", "premium", "llama3", "UTC", fixedNow)
	_, fp3 := n.Normalize("total revenue", "default", "qwen2.5", "UTC", fixedNow)

	assert.NotEqual(t, fp1, fp2)
	assert.NotEqual(t, fp1, fp3)
}

func TestResolveRelativeDates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "last month",
			in:   "revenue last month",
			want: "revenue from 2025-02-01 to 2025-03-01",
		},
		{
			name: "yesterday",
			in:   "orders yesterday",
			want: "orders from 2025-03-11 to 2025-03-12",
		},
		{
			name: "last quarter",
			in:   "sales last quarter",
			want: "sales from 2024-10-01 to 2025-01-01",
		},
		{
			name: "this week starts monday",
			in:   "sessions this week",
			want: "sessions from 2025-03-10 to 2025-03-17",
		},
		{
			name: "no relative dates pass through",
			in:   "revenue from 2025-01-01 to 2025-02-01",
			want: "revenue from 2025-01-01 to 2025-02-01",
		},
	}

	n := NewNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := n.Normalize(tt.in, "default", "llama3", "UTC", fixedNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRelativeDatesHonorsTimezone(t *testing.T) {
	n := NewNormalizer()

	// 2025-03-12 01:30 UTC is still 2025-03-11 in Los Angeles.
	early := time.Date(2025, time.March, 12, 1, 30, 0, 0, time.UTC)
	got, _ := n.Normalize("orders today", "default", "llama3", "America/Los_Angeles", early)

	assert.Equal(t, "orders from 2025-03-11 to 2025-03-12", got)
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	n := NewNormalizer()
	got, _ := n.Normalize("orders today", "default", "llama3", "Not/AZone", fixedNow)
	assert.Equal(t, "orders from 2025-03-12 to 2025-03-13", got)
}
