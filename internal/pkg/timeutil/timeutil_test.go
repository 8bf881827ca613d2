package timeutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatClock(t *testing.T) {
	require.Equal(t, "0:00", FormatClock(0))
	require.Equal(t, "0:07", FormatClock(7.9))
	require.Equal(t, "1:15", FormatClock(75.4))
	require.Equal(t, "12:00", FormatClock(720))
	require.Equal(t, "0:00", FormatClock(-3))
}
