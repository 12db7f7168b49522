package bus

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "host and port", address: "10.0.0.5:5025", want: "10.0.0.5:5025"},
		{name: "bare host", address: "smbv.lab", want: "smbv.lab:5025"},
		{name: "socket resource", address: "TCPIP0::10.0.0.5::5025::SOCKET", want: "10.0.0.5:5025"},
		{name: "instr resource", address: "TCPIP::10.0.0.5::inst0::INSTR", want: "10.0.0.5:5025"},
		{name: "surrounding spaces", address: "  10.0.0.5:7000 ", want: "10.0.0.5:7000"},
		{name: "empty", address: "", wantErr: true},
		{name: "resource without host", address: "TCPIP0::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResource(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "host and port", address: "10.0.0.5:7000", want: "TCPIP0::10.0.0.5::7000::SOCKET"},
		{name: "bare host", address: "smbv.lab", want: "TCPIP0::smbv.lab::5025::SOCKET"},
		{name: "instr resource", address: "TCPIP::10.0.0.5::inst0::INSTR", want: "TCPIP0::10.0.0.5::5025::SOCKET"},
		{name: "empty", address: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resource(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// startInstrument runs a line server that answers "?" commands with the
// given replies and records everything it receives.
func startInstrument(t *testing.T, replies map[string]string) (string, <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan string, 32)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := scanner.Text()
			received <- line
			if strings.HasSuffix(line, "?") {
				conn.Write([]byte(replies[line] + "\n"))
			}
		}
	}()

	return ln.Addr().String(), received
}

func TestSocketConn_WriteAndQuery(t *testing.T) {
	addr, received := startInstrument(t, map[string]string{
		"*IDN?": "Rohde&Schwarz,SMBV100A,1407.6004k02/262017,3.1.19.15-3.20.390.24",
	})

	ctx := context.Background()
	conn, err := Dial(ctx, addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Write(ctx, "*CLS"))
	assert.Equal(t, "*CLS", <-received)

	reply, err := conn.Query(ctx, "*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "*IDN?", <-received)
	assert.Equal(t, "Rohde&Schwarz,SMBV100A,1407.6004k02/262017,3.1.19.15-3.20.390.24", reply)
}

func TestSocketConn_QueryTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// never answer
		defer conn.Close()
		time.Sleep(time.Second)
	}()

	ctx := context.Background()
	conn, err := Dial(ctx, ln.Addr().String(), 50*time.Millisecond)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Query(ctx, "*OPC?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the reply stream is out of step, so the connection stays dropped
	err = conn.Write(ctx, "*CLS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropped")
	assert.NoError(t, conn.Close())
}

func TestSocketConn_CancelledContext(t *testing.T) {
	addr, _ := startInstrument(t, nil)

	conn, err := Dial(context.Background(), addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = conn.Write(ctx, "*RST")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestSocketConn_TimeoutIsPerExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			// a slow *RST style confirmation
			time.Sleep(40 * time.Millisecond)
			conn.Write([]byte("1\n"))
		}
	}()

	ctx := context.Background()
	conn, err := Dial(ctx, ln.Addr().String(), 100*time.Millisecond)
	require.NoError(t, err)
	defer conn.Close()

	// together the replies take longer than the timeout, each one does not
	for i := 0; i < 4; i++ {
		reply, err := conn.Query(ctx, "*OPC?")
		require.NoError(t, err)
		assert.Equal(t, "1", reply)
	}
}
