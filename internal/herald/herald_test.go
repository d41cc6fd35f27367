package herald

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"Tue, 02 Jan 2024 12:00:00 GMT",
		"Tue, 02 Jan 2024 12:00:00 +0000",
		"2024-01-02T12:00:00Z",
		"  2024-01-02 12:00:00 ",
	} {
		got, ok := ParseDate(raw)
		assert.True(t, ok, raw)
		assert.True(t, want.Equal(got), "%s parsed as %s", raw, got)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "sometime last week", "not-a-date"} {
		_, ok := ParseDate(raw)
		assert.False(t, ok, raw)
	}
}
