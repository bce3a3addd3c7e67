// Package sftptest connects SFTP clients to an in-memory server for tests.
package sftptest

import (
	"net"
	"testing"

	"github.com/pkg/sftp"
)

// NewClient returns a client talking to a fresh in-memory SFTP server over a pipe.
// Both ends are closed when the test finishes.
func NewClient(tb testing.TB) *sftp.Client {
	tb.Helper()

	serverConn, clientConn := net.Pipe()
	server := sftp.NewRequestServer(serverConn, sftp.InMemHandler())
	go server.Serve()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		server.Close()
		tb.Fatalf("failed to start sftp client: %v", err)
	}

	tb.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}
