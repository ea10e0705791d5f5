package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New()
	b := New()

	require.False(t, a.IsZero())
	require.Len(t, a.String(), 26)
	require.NotEqual(t, a, b)
	require.Less(t, a.String(), b.String(), "monotonic source keeps ids sortable")
}

func TestParse(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	for _, bad := range []string{"", "  ", "not-a-ulid", "0000"} {
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrInvalid, "input %q", bad)
	}
}

func TestTime(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	id := New()
	after := time.Now().UTC().Add(time.Second)

	ts := id.Time()
	require.True(t, ts.After(before) && ts.Before(after))

	require.True(t, Zero.Time().IsZero())
}
