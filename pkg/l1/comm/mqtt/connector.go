package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
)

// Default timeouts.
const (
	DefaultDiscoverTimeout = 500 * time.Millisecond
	DefaultConnectTimeout  = 5 * time.Second
)

// Connector implements l1.Connector using MQTT. Controllers are discovered
// from the retained meta topics.
type Connector struct {
	DiscoverTimeout time.Duration
	ConnectTimeout  time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

func (c *Connector) connect(q *Queue) error {
	timeout := c.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	token := q.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("connect broker: %w", context.DeadlineExceeded)
	}
	return token.Error()
}

// Discover implements Connector. It collects the meta published until
// DiscoverTimeout.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	q := NewQueue(c.options, c.topicPrefix)
	defer q.Close()
	if err := c.connect(q); err != nil {
		return nil, err
	}

	infoCh := make(chan l1.ControllerInfo, 16)
	sub := q.Sub("+/+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case infoCh <- info:
			default:
			}
		}
	})
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(dur)
	defer timer.Stop()

	var infos []l1.ControllerInfo
	index := make(map[l1.ControllerRef]int)
	for {
		select {
		case info := <-infoCh:
			// meta republished later replaces the earlier one.
			if i, ok := index[info.Ref]; ok {
				infos[i] = info
				continue
			}
			index[info.Ref] = len(infos)
			infos = append(infos, info)
		case <-timer.C:
			return infos, nil
		case <-ctx.Done():
			return infos, ctx.Err()
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err := c.connect(q); err != nil {
		q.Close()
		return nil, fmt.Errorf("%s: %w", ref.Name(), err)
	}
	conn := &ControllerConn{Queue: q}
	conn.Init(NewPacketReadWriter(q).ForConnector(ref))
	return conn, nil
}

// ControllerConn implements ControllerConn using MQTT.
type ControllerConn struct {
	comm.ControllerConn
	Queue *Queue
}

// Close disconnects from the broker.
func (c *ControllerConn) Close() error {
	err := c.ControllerConn.Close()
	c.Queue.Close()
	return err
}
