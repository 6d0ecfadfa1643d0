package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/robotis.go/pkg/l1/comm"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)

	binary.Write(&buf, binary.LittleEndian, uint32(MaxPacketSize+1))
	_, err = rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
	require.NoError(t, rw.Close())
}

func dial(t *testing.T, ln *Listener) *ReadWriter {
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	return New(conn)
}

func TestListenerServer(t *testing.T) {
	listener, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	ln := comm.NewServer(listener)
	require.Equal(t, comm.ErrNotConnected, ln.WritePacket([]byte{1}))

	type readResult struct {
		pkt []byte
		err error
	}
	readCh := make(chan readResult, 1)
	read := func() {
		pkt, err := ln.ReadPacket()
		readCh <- readResult{pkt, err}
	}
	expect := func(pkt []byte) {
		select {
		case res := <-readCh:
			require.NoError(t, res.err)
			require.Equal(t, pkt, res.pkt)
		case <-time.After(2 * time.Second):
			t.Fatal("packet not received")
		}
	}

	go read()
	client := dial(t, listener)
	require.NoError(t, client.WritePacket([]byte{1}))
	expect([]byte{1})

	require.NoError(t, ln.WritePacket([]byte{2}))
	pkt, err := client.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{2}, pkt)

	// the next connection is served after the first one drops.
	go read()
	client.Close()
	client = dial(t, listener)
	require.NoError(t, client.WritePacket([]byte{3}))
	expect([]byte{3})

	go read()
	require.NoError(t, ln.Close())
	select {
	case res := <-readCh:
		require.Error(t, res.err)
	case <-time.After(2 * time.Second):
		t.Fatal("read not stopped by close")
	}
	client.Close()
}

func TestConnector(t *testing.T) {
	c := NewConnector("127.0.0.1:1")
	infos, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "tcp/127.0.0.1:1", infos[0].Ref.Name())

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	c.Addr = ln.Addr().String()
	conn, err := c.Connect(context.Background(), infos[0].Ref)
	require.NoError(t, err)
	require.NotNil(t, conn)
}
