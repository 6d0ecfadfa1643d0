package servo

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		args []string
		id   uint32
		ok   bool
	}{
		{[]string{"0"}, 0, true},
		{[]string{"1", "extra"}, 1, true},
		{[]string{"253"}, 253, true},
		{[]string{"254"}, 0, false},
		{[]string{"256"}, 0, false},
		{[]string{"-1"}, 0, false},
		{[]string{"abc"}, 0, false},
		{[]string{"0x01"}, 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		id, err := parseID(c.args)
		if !c.ok {
			require.Error(t, err, "%v", c.args)
			continue
		}
		require.NoError(t, err, "%v", c.args)
		require.Equal(t, c.id, id)
	}
}

func TestParseDegrees(t *testing.T) {
	val, err := parseDegrees("ANGLE", "180")
	require.NoError(t, err)
	require.InDelta(t, math.Pi, val, 1e-6)

	val, err = parseDegrees("ANGLE", "-90")
	require.NoError(t, err)
	require.InDelta(t, -math.Pi/2, val, 1e-6)

	_, err = parseDegrees("SPEED", "fast")
	require.Error(t, err)
	require.Contains(t, err.Error(), "SPEED")
}

func TestParseMove(t *testing.T) {
	msg, extra, err := parseMove([]string{"2", "90"})
	require.NoError(t, err)
	require.Equal(t, uint32(2), msg.ID)
	require.InDelta(t, math.Pi/2, msg.Angle, 1e-6)
	require.Zero(t, msg.Velocity)
	require.False(t, msg.Wait)
	require.Zero(t, extra)

	msg, extra, err = parseMove([]string{"-w", "3", "0", "45"})
	require.NoError(t, err)
	require.True(t, msg.Wait)
	require.Zero(t, msg.TimeoutMs)
	require.InDelta(t, math.Pi/4, msg.Velocity, 1e-6)
	require.Equal(t, DefaultMoveWait, extra)

	msg, extra, err = parseMove([]string{"-w", "-t", "2s", "3", "0"})
	require.NoError(t, err)
	require.Equal(t, uint32(2000), msg.TimeoutMs)
	require.Equal(t, 2*time.Second, extra)

	for _, args := range [][]string{
		{},
		{"1"},
		{"254", "0"},
		{"1", "x"},
		{"1", "0", "y"},
		{"-t", "soon", "1", "0"},
	} {
		_, _, err = parseMove(args)
		require.Error(t, err, "%v", args)
	}
}

func TestParseTorque(t *testing.T) {
	for _, arg := range []string{"on", "1", "true"} {
		msg, err := parseTorque([]string{"4", arg})
		require.NoError(t, err)
		require.Equal(t, &msgs.ServoTorque{ID: 4, Enable: true}, msg)
	}
	for _, arg := range []string{"off", "0", "false"} {
		msg, err := parseTorque([]string{"4", arg})
		require.NoError(t, err)
		require.Equal(t, &msgs.ServoTorque{ID: 4}, msg)
	}
	_, err := parseTorque([]string{"4", "maybe"})
	require.Error(t, err)
	_, err = parseTorque([]string{"4"})
	require.Error(t, err)
}

func TestParseSpeed(t *testing.T) {
	msg, err := parseSpeed([]string{"5", "360"})
	require.NoError(t, err)
	require.Equal(t, uint32(5), msg.ID)
	require.InDelta(t, 2*math.Pi, msg.Velocity, 1e-5)

	_, err = parseSpeed([]string{"5"})
	require.Error(t, err)
}
