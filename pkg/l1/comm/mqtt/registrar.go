package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
)

// Registrar implements l1.Registrar using MQTT.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	metaJSON  string
	metaLock  sync.Mutex
	registrar comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("robotis:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: string(meta),
	}
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	r.registrar.Init(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.registrar)
	loop.AddRunnable(r)
}

// Run implements Runnable. The retained meta is cleared on exit so the
// controller disappears from discovery.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	token := r.Queue.PubWith(r.metaTopic(), nil, 1, true)
	if !token.WaitTimeout(time.Second) {
		glog.Warningf("clear %s: timeout", r.metaTopic())
	}
	r.Queue.Close()
	return nil
}

func (r *Registrar) metaTopic() string {
	return r.Info.Ref.Name() + "/" + TopicMeta
}

// UpdateMeta replaces the meta and publishes it if connected.
func (r *Registrar) UpdateMeta(meta l1.ControllerMeta) error {
	data, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	r.metaLock.Lock()
	r.Info.Meta = meta
	r.metaJSON = string(data)
	r.metaLock.Unlock()
	if r.Queue.Client.IsConnected() {
		r.publishMeta()
	}
	return nil
}

func (r *Registrar) publishMeta() {
	r.metaLock.Lock()
	payload := []byte(r.metaJSON)
	r.metaLock.Unlock()
	r.Queue.PubWith(r.metaTopic(), payload, 1, true)
}

func (r *Registrar) onConnected() {
	glog.Infof("registered %s", r.Info.Ref.Name())
	r.publishMeta()
}
