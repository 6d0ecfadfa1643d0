package connector

import (
	"context"
	"flag"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robotis.go/pkg/l1"
	"github.com/robotalks/robotis.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/robotis.go/pkg/l1/comm/stream"
	"github.com/robotalks/robotis.go/pkg/l1/comm/websocket"
)

func TestNewConnector(t *testing.T) {
	conf := &Config{RegistryURL: "mqtt://localhost:1883/robotis/"}
	connector, err := conf.NewConnector()
	require.NoError(t, err)
	require.IsType(t, &mqtt.Connector{}, connector)

	conf.RegistryURL = "tcp://robot.local:7010"
	connector, err = conf.NewConnector()
	require.NoError(t, err)
	require.Equal(t, "robot.local:7010", connector.(*stream.Connector).Addr)

	conf.RegistryURL = "ws://robot.local:7011/l1"
	connector, err = conf.NewConnector()
	require.NoError(t, err)
	require.IsType(t, &websocket.Connector{}, connector)

	conf.RegistryURL = "http://robot.local"
	_, err = conf.NewConnector()
	require.Error(t, err)
}

type fakeConnector struct {
	l1.Connector
}

func (c *fakeConnector) Discover(context.Context) ([]l1.ControllerInfo, error) {
	return nil, nil
}

func TestRegisterScheme(t *testing.T) {
	RegisterScheme("fake", func(*url.URL) (l1.Connector, error) {
		return &fakeConnector{}, nil
	})
	defer delete(factories, "fake")
	connector, err := (&Config{RegistryURL: "fake://x"}).NewConnector()
	require.NoError(t, err)
	require.IsType(t, &fakeConnector{}, connector)
}

func TestRefFlag(t *testing.T) {
	var ref l1.ControllerRef
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(refFlag{&ref}, "ctl", "")
	require.NoError(t, fs.Parse([]string{"-ctl", "servo/abc"}))
	require.Equal(t, l1.ControllerRef{Type: "servo", ID: "abc"}, ref)
	require.Equal(t, "servo/abc", refFlag{&ref}.String())
	require.Error(t, refFlag{&ref}.Set("servo"))
}
