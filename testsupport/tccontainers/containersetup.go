package tccontainers

import (
	"context"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a started test container of one of the backing services.
type Container struct {
	testcontainers.Container
}

type ContainerOption func(req *testcontainers.ContainerRequest)

func WithImage(image string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Image = image
	}
}

func WithCmd(cmd ...string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Cmd = cmd
	}
}

func WithWaitStrategy(strategies ...wait.Strategy) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithPort(port string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.ExposedPorts = append(req.ExposedPorts, port)
	}
}

func WithName(containerName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Name = containerName
	}
}

func WithEnv(key, value string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Env[key] = value
	}
}

func WithInitialDatabase(user, password, dbName string) ContainerOption {
	return func(req *testcontainers.ContainerRequest) {
		req.Env["POSTGRES_USER"] = user
		req.Env["POSTGRES_PASSWORD"] = password
		req.Env["POSTGRES_DB"] = dbName
	}
}

// Setup starts (or reuses, if a name is given) a container built from opts.
func Setup(ctx context.Context, opts ...ContainerOption) (*Container, error) {
	req := testcontainers.ContainerRequest{
		Env:          map[string]string{},
		ExposedPorts: []string{},
	}
	for _, opt := range opts {
		opt(&req)
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            req.Name != "",
		})
	if err != nil {
		return nil, err
	}

	return &Container{Container: container}, nil
}

// Endpoint returns host:port of the mapped container port.
func (c *Container) Endpoint(ctx context.Context, port nat.Port) (string, error) {
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	return host + ":" + mapped.Port(), nil
}
