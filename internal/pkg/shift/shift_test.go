package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input  string
		want   TimeOfDay
		wantOK bool
	}{
		{"23:59", TimeOfDay{23, 59}, true},
		{"00:00", TimeOfDay{0, 0}, true},
		{"07:00:00", TimeOfDay{7, 0}, true},
		{"7:5", TimeOfDay{7, 5}, true},
		{" 22:00 ", TimeOfDay{22, 0}, true},
		{"24:00", TimeOfDay{}, false},
		{"07:60", TimeOfDay{}, false},
		{"0700", TimeOfDay{}, false},
		{"ab:00", TimeOfDay{}, false},
		{"07:xx", TimeOfDay{}, false},
		{"-1:00", TimeOfDay{}, false},
		{"07:00:", TimeOfDay{}, false},
		{"07:00:00:00", TimeOfDay{}, false},
		{"-", TimeOfDay{}, false},
		{"", TimeOfDay{}, false},
	}
	for _, c := range cases {
		got, err := Parse(c.input)
		if c.wantOK {
			require.NoError(t, err, "Parse(%q)", c.input)
			assert.Equal(t, c.want, got, "Parse(%q)", c.input)
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTimeFormat, "Parse(%q)", c.input)
	}
}

func TestIsNightShift(t *testing.T) {
	cases := []struct {
		in, out string
		want    bool
	}{
		{"22:00", "07:00", true},
		{"09:00", "17:00", false},
		{"00:00", "08:00", false},
		{"18:00", "02:00", true},
		{"13:00", "12:30", true},
		{"08:00", "08:30", false},
	}
	for _, c := range cases {
		got, err := ClassifyStrings(c.in, c.out)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s-%s", c.in, c.out)
	}
}

func TestClassifyStrings_MalformedDegradesToRegular(t *testing.T) {
	got, err := ClassifyStrings("22:00", "-")
	assert.False(t, got)
	assert.ErrorIs(t, err, ErrInvalidTimeFormat)
}

func TestIsEarlyTimeout(t *testing.T) {
	assert.True(t, IsEarlyTimeout(TimeOfDay{0, 21}))
	assert.True(t, IsEarlyTimeout(TimeOfDay{5, 59}))
	assert.False(t, IsEarlyTimeout(TimeOfDay{6, 0}))
	assert.False(t, IsEarlyTimeout(TimeOfDay{17, 0}))
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("-"))
	assert.True(t, IsPlaceholder(" "))
	assert.False(t, IsPlaceholder("08:00"))
}

func TestTimeOfDayOn(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	day := time.Date(2024, 1, 15, 13, 45, 10, 0, loc)
	got := TimeOfDay{Hour: 7, Minute: 30}.On(day)
	assert.Equal(t, time.Date(2024, 1, 15, 7, 30, 0, 0, loc), got)
	assert.Equal(t, "07:30", FromTime(got).String())
}
