package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

func TestFormatInfo(t *testing.T) {
	info := l1.ControllerInfo{Ref: l1.ControllerRef{Type: "servo", ID: "abc"}}
	require.Equal(t, "servo/abc", FormatInfo(info))
	info.Meta = l1.ControllerMeta{
		Description: "Robotis Servo Bus",
		Labels:      map[string]string{"servos": "1,2", "baud": "57600"},
	}
	require.Equal(t, "servo/abc: Robotis Servo Bus baud=57600 servos=1,2", FormatInfo(info))
}

func TestMsgName(t *testing.T) {
	require.Equal(t, "ServoMoveResult", MsgName(&msgs.ServoMoveResult{}))
	require.Equal(t, "CommandOK", MsgName(msgs.NewCommandOK()))
}

func TestFormatMsg(t *testing.T) {
	s := &Shell{}
	line, err := s.FormatMsg(msgs.NewCommandOK())
	require.NoError(t, err)
	require.Equal(t, "OK", line)

	line, err = s.FormatMsg(&msgs.ServoInfo{ID: 3, State: "ready"})
	require.NoError(t, err)
	require.Contains(t, line, "ServoInfo ")
	require.Contains(t, line, "ready")

	s.OutputJSON = true
	line, err = s.FormatMsg(&msgs.ServoInfo{ID: 3, State: "ready"})
	require.NoError(t, err)
	require.Contains(t, line, `"state":"ready"`)
}

func TestDoWithoutSession(t *testing.T) {
	s := &Shell{Timeout: DefaultCommandTimeout}
	res := s.Do(&msgs.ServoProbe{ID: 1}, 0)
	require.Equal(t, ErrNotConnected, res.Err)
}

func TestRefFromArgs(t *testing.T) {
	ref, err := refFromArgs(nil, []string{"servo", "abc"})
	require.NoError(t, err)
	require.Equal(t, "servo/abc", ref.Name())
	ref, err = refFromArgs(nil, []string{"servo/abc"})
	require.NoError(t, err)
	require.Equal(t, "servo/abc", ref.Name())
	_, err = refFromArgs(nil, []string{"servo/"})
	require.Error(t, err)
}
