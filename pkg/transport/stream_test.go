package transport

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

// startEchoServer accepts one connection, sends banner, then echoes
// everything it receives back to the client.
func startEchoServer(t *testing.T, banner string) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if banner != "" {
			conn.Write([]byte(banner))
		}
		io.Copy(conn, conn)
	}()

	hostStr, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	p, _ := strconv.Atoi(portStr)
	return hostStr, p
}

func waitConnected(t *testing.T, c *StreamClient) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("connection never established")
		}
		time.Sleep(time.Millisecond)
	}
}

func readAll(t *testing.T, c *StreamClient, n int) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if time.Now().After(deadline) {
			t.Fatalf("read %d of %d bytes before timeout", len(buf), n)
		}
		b, ok := c.ReadByte()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func TestStreamClientConnectAndRead(t *testing.T) {
	host, port := startEchoServer(t, "banner\r\n")

	c, err := NewStreamClient("", nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer c.Stop()

	if !c.Connect(host, port) {
		t.Fatal("Connect refused to start")
	}
	waitConnected(t, c)

	if got := readAll(t, c, len("banner\r\n")); got != "banner\r\n" {
		t.Errorf("banner = %q", got)
	}

	if err := c.Print("hello"); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if got := readAll(t, c, len("hello")); got != "hello" {
		t.Errorf("echo = %q", got)
	}
}

func TestStreamClientQueuesWritesDuringDial(t *testing.T) {
	host, port := startEchoServer(t, "")

	c, err := NewStreamClient("", nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer c.Stop()

	if !c.Connect(host, port) {
		t.Fatal("Connect refused to start")
	}
	// Write immediately, before the background dial can have finished.
	if err := c.Print("queued request"); err != nil {
		t.Fatalf("Print while dialing: %v", err)
	}

	waitConnected(t, c)
	if got := readAll(t, c, len("queued request")); got != "queued request" {
		t.Errorf("echo = %q", got)
	}
}

func TestStopAbandonsInFlightDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	hostStr, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	c, err := NewStreamClient("", nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer c.Stop()

	if !c.Connect(hostStr, port) {
		t.Fatal("Connect refused to start")
	}
	// Stop while the background dial is still in flight. Whenever the dial
	// lands, its result must be discarded, never installed.
	c.Stop()

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.Connected() {
			t.Fatal("stopped client reports Connected: abandoned dial installed a connection")
		}
		time.Sleep(time.Millisecond)
	}

	// The stopped client must accept a fresh session immediately.
	if !c.Connect(hostStr, port) {
		t.Fatal("Connect refused after Stop")
	}
	waitConnected(t, c)
}

func TestStreamClientDetectsRemoteClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("bye"))
		conn.Close()
	}()

	hostStr, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	c, err := NewStreamClient("", nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer c.Stop()

	if !c.Connect(hostStr, port) {
		t.Fatal("Connect refused to start")
	}
	waitConnected(t, c)

	if got := readAll(t, c, 3); got != "bye" {
		t.Fatalf("payload = %q", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("Connected still true after remote close")
		}
		c.Available() // polls the socket
		time.Sleep(time.Millisecond)
	}

	if !c.Connect(hostStr, port) {
		t.Log("reconnect attempt refused; Stop clears state")
		c.Stop()
		if !c.Connect(hostStr, port) {
			t.Error("Connect refused after Stop")
		}
	}
}
