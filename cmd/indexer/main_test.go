package main

import (
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/6529-Collections/6529stats/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestIndexerStartAndStop runs main() in API only mode and stops it with SIGTERM.
func TestIndexerStartAndStop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	dir := t.TempDir()
	oldGet := config.Get
	config.Get = func() config.Config {
		return config.Config{
			RPCPort:    port,
			BadgerPath: filepath.Join(dir, "badger"),
			SqlitePath: filepath.Join(dir, "sqlite", "sqlite"),
		}
	}
	defer func() { config.Get = oldGet }()

	core, logs := observer.New(zap.InfoLevel)
	oldLogger := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	defer zap.ReplaceGlobals(oldLogger)

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Indexer started").Len() > 0
	}, 5*time.Second, 20*time.Millisecond)

	proc, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, proc.Signal(syscall.SIGTERM))

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("main() did not exit after sending SIGTERM")
	}

	assert.Equal(t, 1, logs.FilterMessage("No chains to index, serving API only").Len())
	assert.Equal(t, 1, logs.FilterMessage("Received shutdown signal, initiating graceful shutdown...").Len())
	assert.Equal(t, 1, logs.FilterMessage("Shutdown complete").Len())
}
