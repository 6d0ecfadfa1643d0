package sh

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// FormatInfo formats ControllerInfo in one line.
func FormatInfo(info l1.ControllerInfo) string {
	var sb strings.Builder
	sb.WriteString(info.Ref.Name())
	if desc := info.Meta.Description; desc != "" {
		sb.WriteString(": " + desc)
	}
	keys := make([]string, 0, len(info.Meta.Labels))
	for key := range info.Meta.Labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&sb, " %s=%s", key, info.Meta.Labels[key])
	}
	return sb.String()
}

// MsgName returns the type name of a message.
func MsgName(msg fx.Message) string {
	return reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
}

// FormatMsg formats a message in JSON or text per OutputJSON.
func (s *Shell) FormatMsg(msg fx.Message) (string, error) {
	serializable, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return "", fmt.Errorf("unexpected message %T", msg)
	}
	if s.OutputJSON {
		out, err := json.Marshal(serializable.Serializable())
		return string(out), err
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		return "OK", nil
	}
	return MsgName(msg) + " " + serializable.Serializable().String(), nil
}
