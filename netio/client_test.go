package netio

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptRegistersClientAndBroadcastDeliversData(t *testing.T) {
	svc := NewService("test-out", ProtoRawOut, 0, nil)

	server, client := net.Pipe()
	defer client.Close()
	c := svc.Accept(server)
	defer c.Close(false)

	assert.Equal(t, 1, svc.ClientCount())

	done := make(chan []byte, 1)
	go func() {
		r := bufio.NewReader(client)
		line, _ := r.ReadString('\n')
		done <- []byte(line)
	}()

	svc.Broadcast([]byte("hello\n"))

	select {
	case got := <-done:
		assert.Equal(t, "hello\n", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast delivery")
	}
}

func TestBroadcastSkipsReduceForwardClients(t *testing.T) {
	svc := NewService("test-reduce", ProtoBeastReduceOut, 0, nil)

	server, client := net.Pipe()
	defer client.Close()
	c := svc.Accept(server)
	defer c.Close(false)
	c.Reduce = true

	readDone := make(chan struct{})
	go func() {
		buf := make([]byte, 16)
		client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		client.Read(buf)
		close(readDone)
	}()

	svc.Broadcast([]byte("skip-me"))
	<-readDone // the read should time out, not receive data; absence is the assertion
}

func TestCloseIsIdempotentAndRemovesFromService(t *testing.T) {
	svc := NewService("test-close", ProtoRawOut, 0, nil)
	server, client := net.Pipe()
	defer client.Close()
	c := svc.Accept(server)

	c.Close(false)
	c.Close(false) // must not panic on double-close
	assert.Equal(t, 0, svc.ClientCount())
}

func TestSendQueueOverflowDisconnectsClient(t *testing.T) {
	svc := NewService("test-overflow", ProtoRawOut, 0, nil)
	server, client := net.Pipe()
	defer client.Close()
	c := svc.Accept(server)

	// net.Pipe is unbuffered and nobody is reading, so the writer
	// goroutine blocks on its first Write; flood sendCh past its
	// capacity to force the overflow branch in Send.
	for i := 0; i < 300; i++ {
		c.Send([]byte("x"))
	}

	require.Eventually(t, func() bool {
		return svc.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
