package tccontainers

import (
	"context"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupNats starts a jetstream enabled nats server and returns its url.
func SetupNats(ctx context.Context) (string, error) {
	port, err := nat.NewPort("tcp", "4222")
	if err != nil {
		return "", err
	}
	container, err := Setup(ctx,
		WithImage("nats:2.10"),
		WithCmd("-js"),
		WithPort(port.Port()),
		WithWaitStrategy(wait.ForLog("Server is ready")),
		WithName("datalog-analyzer-test-nats"),
	)
	if err != nil {
		return "", err
	}
	endpoint, err := container.Endpoint(ctx, port)
	if err != nil {
		return "", err
	}
	return "nats://" + endpoint, nil
}

// SetupRedis starts a redis server and returns its host:port.
func SetupRedis(ctx context.Context) (string, error) {
	port, err := nat.NewPort("tcp", "6379")
	if err != nil {
		return "", err
	}
	container, err := Setup(ctx,
		WithImage("redis:7"),
		WithPort(port.Port()),
		WithWaitStrategy(wait.ForLog("Ready to accept connections")),
		WithName("datalog-analyzer-test-redis"),
	)
	if err != nil {
		return "", err
	}
	return container.Endpoint(ctx, port)
}
