package mqtt

import (
	"encoding/json"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/msgs"
)

// Topic suffixes under TYPE/ID.
const (
	TopicMeta = "meta"
	TopicCmd  = "cmd"
	TopicMsg  = "msg"
)

// ParseMeta decodes a retained TYPE/ID/meta message. An empty payload is
// the will of a controller gone offline, so ok is false.
func ParseMeta(topic string, payload []byte) (info l1.ControllerInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != TopicMeta || len(payload) == 0 {
		return
	}
	info.Ref = l1.ControllerRef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: invalid meta: %v", topic, err)
	}
	return info, true
}

// TypedHandler decodes payloads as Typed messages before calling fn. msg is
// nil if the type isn't registered, err is set if the payload is broken.
func TypedHandler(fn func(topic string, typed *msgs.Typed, msg fx.Message, err error)) Handler {
	return func(topic string, payload []byte) {
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			fn(topic, nil, nil, err)
			return
		}
		msg, err := typed.Decode()
		fn(topic, typed, msg, err)
	}
}
