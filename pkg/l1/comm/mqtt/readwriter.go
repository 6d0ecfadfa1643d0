package mqtt

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/robotis.go/pkg/l1"
)

// DefaultPublishTimeout bounds WritePacket.
const DefaultPublishTimeout = 2 * time.Second

// ReadWriter implements PacketReadWriter on a pair of topics. It reads
// from SubTopic while running and writes to PubTopic.
type ReadWriter struct {
	Queue          *Queue
	SubTopic       string
	PubTopic       string
	QoS            byte
	PublishTimeout time.Duration

	inbox  chan []byte
	doneCh chan struct{}
}

// NewPacketReadWriter creates a ReadWriter on q, topics are set by
// WithTopics, ForConnector or ForController.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:          q,
		PublishTimeout: DefaultPublishTimeout,
		inbox:          make(chan []byte, 16),
		doneCh:         make(chan struct{}),
	}
}

// WithTopics sets the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConnector reads TYPE/ID/msg and writes TYPE/ID/cmd.
func (p *ReadWriter) ForConnector(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/"+TopicMsg, ref.Name()+"/"+TopicCmd)
}

// ForController reads TYPE/ID/cmd and writes TYPE/ID/msg.
func (p *ReadWriter) ForController(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/"+TopicCmd, ref.Name()+"/"+TopicMsg)
}

// ReadPacket implements PacketReadWriter, io.EOF is returned once Run
// returns.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case <-p.doneCh:
		return nil, io.EOF
	case pkt := <-p.inbox:
		return pkt, nil
	}
}

// WritePacket implements PacketReadWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.PubWith(p.PubTopic, pkt, p.QoS, false)
	if p.PublishTimeout > 0 && !token.WaitTimeout(p.PublishTimeout) {
		return fmt.Errorf("publish %s: %w", p.PubTopic, context.DeadlineExceeded)
	}
	token.Wait()
	return token.Error()
}

// Run implements Runnable. SubTopic is subscribed until ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	<-ctx.Done()
	close(p.doneCh)
	if err := sub.Close(); err != nil {
		glog.V(2).Infof("unsubscribe %s: %v", p.SubTopic, err)
	}
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	select {
	case <-p.doneCh:
		glog.V(2).Infof("DROP %q", topic)
	case p.inbox <- payload:
	}
}
