package utils

import (
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@db.local:6432/datalog", "db.local:6432"},
		{"default port", "postgresql://user:pw@db.local/datalog", "db.local:5432"},
		{"postgres scheme", "postgres://user@localhost:5432/x?sslmode=disable", "localhost:5432"},
		{"other scheme", "mysql://user@localhost/x", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "nats://nats.local:4223", "nats.local:4223"},
		{"default port", "nats://nats.local", "nats.local:4222"},
		{"credentials", "nats://user:pw@nats.local:4222", "nats.local:4222"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestCheckClientVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"v1.0.0", true},
		{"1.2.3", true},
		{"v2.0.0-rc1", true},
		{"v0.9.9", false},
		{"garbage", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckClientVersion(tt.version))
		})
	}
}

func TestWaitForTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer l.Close()
	assert.NilError(t, WaitForTCP(l.Addr().String(), time.Second))

	addr := l.Addr().String()
	l.Close()
	assert.ErrorContains(t, WaitForTCP(addr, 300*time.Millisecond), "could not be reached")
}
