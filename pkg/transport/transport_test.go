package transport

import (
	"net"
	"os"
	"testing"
)

func pipePair(t *testing.T) (*Transport, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	return New(server), client
}

func TestReadOctet(t *testing.T) {
	tr, client := pipePair(t)
	defer client.Close()
	go func() { _, _ = client.Write([]byte("G")) }()
	b, err := tr.ReadOctet()
	if err != nil {
		t.Fatalf("ReadOctet: %v", err)
	}
	if b != 'G' {
		t.Fatalf("ReadOctet = %q, want 'G'", b)
	}
}

func TestWriteAll(t *testing.T) {
	tr, client := pipePair(t)
	defer client.Close()
	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()
	if err := tr.WriteAll([]byte("hello")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	got := <-done
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestSendFilePlain(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "body")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("hi\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}

	tr, client := pipePair(t)
	defer client.Close()
	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := client.Read(buf)
		done <- buf[:n]
	}()
	if err := tr.SendFile(f, 3); err != nil {
		t.Fatalf("SendFile: %v", err)
	}
	got := <-done
	if string(got) != "hi\n" {
		t.Fatalf("got %q, want %q", got, "hi\n")
	}
}

func TestPeerIsLocalNonTCP(t *testing.T) {
	_, client := net.Pipe()
	defer client.Close()
	if PeerIsLocal(client) {
		t.Fatalf("net.Pipe conn has no TCPAddr, expected false")
	}
}

func TestShutdownUsesPositiveLinger(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	server := <-accepted
	tr := New(server)

	if err := tr.WriteAll([]byte("payload")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	tr.Shutdown()

	buf := make([]byte, 7)
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("expected to read data written before Shutdown, got err: %v", err)
	}
	if string(buf) != "payload" {
		t.Fatalf("got %q, want %q (Shutdown must not discard unread data via SetLinger(0))", buf, "payload")
	}
}
