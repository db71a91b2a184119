package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Normalizer turns raw user text into canonical text plus a deterministic
// fingerprint. No external I/O: identical (text, routing profile, model id)
// always produces the same fingerprint.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize cleans the raw text, resolves relative date expressions against
// the request timezone, and fingerprints the result.
func (n *Normalizer) Normalize(rawText, routingProfile, modelId, timezone string, now time.Time) (string, string) {
	text := strings.ToLower(strings.TrimSpace(rawText))
	text = collapseWhitespace(text)
	text = resolveRelativeDates(text, timezone, now)

	return text, Fingerprint(text, routingProfile, modelId)
}

// Fingerprint is a SHA-256 over the canonical text and the routing context.
// Different routing profiles or model ids never share cache entries.
func Fingerprint(normalizedText, routingProfile, modelId string) string {
	h := sha256.New()
	h.Write([]byte(normalizedText))
	h.Write([]byte{0x1f})
	h.Write([]byte(routingProfile))
	h.Write([]byte{0x1f})
	h.Write([]byte(modelId))
	return hex.EncodeToString(h.Sum(nil))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveRelativeDates substitutes a fixed set of English relative date
// expressions with concrete [from,to) ranges in the request's timezone.
// Unknown expressions pass through untouched.
func resolveRelativeDates(text, timezone string, now time.Time) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	local := now.In(loc)

	for _, phrase := range orderedPhrases {
		if !strings.Contains(text, phrase) {
			continue
		}
		from, to := resolveRange(phrase, local)
		replacement := fmt.Sprintf("from %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
		text = strings.ReplaceAll(text, phrase, replacement)
	}
	return text
}

// Longer phrases first so "last quarter" is not clipped by "last".
var orderedPhrases = []string{
	"last quarter",
	"this quarter",
	"last month",
	"this month",
	"last week",
	"this week",
	"last year",
	"this year",
	"yesterday",
	"today",
}

func resolveRange(phrase string, local time.Time) (time.Time, time.Time) {
	y, m, d := local.Date()
	loc := local.Location()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch phrase {
	case "today":
		return dayStart, dayStart.AddDate(0, 0, 1)
	case "yesterday":
		return dayStart.AddDate(0, 0, -1), dayStart
	case "this week":
		start := startOfWeek(dayStart)
		return start, start.AddDate(0, 0, 7)
	case "last week":
		start := startOfWeek(dayStart).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7)
	case "this month":
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case "last month":
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0)
	case "this quarter":
		start := startOfQuarter(y, m, loc)
		return start, start.AddDate(0, 3, 0)
	case "last quarter":
		start := startOfQuarter(y, m, loc).AddDate(0, -3, 0)
		return start, start.AddDate(0, 3, 0)
	case "this year":
		start := time.Date(y, 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	case "last year":
		start := time.Date(y-1, 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}
	return dayStart, dayStart.AddDate(0, 0, 1)
}

func startOfWeek(dayStart time.Time) time.Time {
	// Monday-based weeks
	weekday := int(dayStart.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return dayStart.AddDate(0, 0, -(weekday - 1))
}

func startOfQuarter(year int, month time.Month, loc *time.Location) time.Time {
	qStart := ((int(month)-1)/3)*3 + 1
	return time.Date(year, time.Month(qStart), 1, 0, 0, 0, 0, loc)
}
