package controller

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/robotis.go/pkg/framework"
	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm"
	"github.com/robotalks/robotis.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/robotis.go/pkg/l1/comm/stream"
	"github.com/robotalks/robotis.go/pkg/l1/comm/websocket"
	"github.com/robotalks/robotis.go/pkg/l1/env"
)

// Config provides common options to setup an env for L1 controllers.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// ListenAddr serves a direct TCP connection if not empty.
	ListenAddr string
	// WSListenAddr serves a direct websocket connection on WSPath.
	WSListenAddr string
	WSPath       string
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/robotis/",
	WSPath:        "/l1",
}

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("ROBO_LISTEN"); val != "" {
		defaultConfig.ListenAddr = val
	}
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID, default to machine id")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr, "TCP address serving a single L1 connection, e.g. :7010")
	flag.StringVar(&defaultConfig.WSListenAddr, "ws-listen", defaultConfig.WSListenAddr, "Address serving a single L1 websocket connection, e.g. :7011")
	flag.StringVar(&defaultConfig.WSPath, "ws-path", defaultConfig.WSPath, "HTTP path of the websocket endpoint")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetControllerType should be called in init with basic info about the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Env is the env for L1 controllers.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("controller type and id must be specified")
	}
	env := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, c.MQTTBrokerURL)
	}
	if c.ListenAddr != "" {
		ln, err := stream.Listen(c.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("listen %s error: %v", c.ListenAddr, err)
		}
		glog.Infof("listening on %s", ln.Addr())
		env.Registrar.Add(comm.NewRegistrar(comm.NewServer(ln)))
		env.RegistryURLs = append(env.RegistryURLs, "tcp://"+ln.Addr().String())
	}
	if c.WSListenAddr != "" {
		acceptor, err := websocket.Listen(c.WSListenAddr, c.WSPath)
		if err != nil {
			return nil, fmt.Errorf("listen %s error: %v", c.WSListenAddr, err)
		}
		glog.Infof("websocket on %s%s", acceptor.Addr(), c.WSPath)
		env.Registrar.Add(comm.NewRegistrar(comm.NewServer(acceptor)))
		env.RegistryURLs = append(env.RegistryURLs, "ws://"+acceptor.Addr().String()+c.WSPath)
	}
	if len(env.Registrar.Registrars) == 0 {
		return nil, fmt.Errorf("at least one registrar is required")
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// MetaUpdater is implemented by registrars publishing the controller meta.
type MetaUpdater interface {
	UpdateMeta(l1.ControllerMeta) error
}

// SetLabel sets a label of the controller meta and republishes it.
func (e *Env) SetLabel(key, val string) {
	meta := &e.Config.Info.Meta
	if meta.Labels == nil {
		meta.Labels = make(map[string]string)
	}
	meta.Labels[key] = val
	for _, reg := range e.Registrar.Registrars {
		if updater, ok := reg.(MetaUpdater); ok {
			if err := updater.UpdateMeta(*meta); err != nil {
				glog.Warningf("update meta: %v", err)
			}
		}
	}
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(&comm.UnsupportedCommands{})
}
