// Package devchain runs local anvil chains in docker to deploy the mediators against.
package devchain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/compose-network/mediator-deployer/internal/rpc"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	DefaultImage = "ghcr.io/foundry-rs/foundry:latest"

	containerPrefix = "mediator-deployer-"
	rpcPort         = "8545/tcp"
	labelProject    = "io.compose-network.project"
	projectName     = "mediator-deployer"

	readyInterval = 500 * time.Millisecond
	readyTimeout  = time.Minute
)

type (
	// Chain is one local dev chain published on localhost:Port.
	Chain struct {
		Name    string
		Port    int
		ChainID uint64
	}

	Endpoint struct {
		Name        string
		ContainerID string
		RPCURL      string
		ChainID     uint64
	}

	Manager struct {
		docker *Docker
		image  string
		ready  func(ctx context.Context, url string, chainID uint64) error
		logger *slog.Logger
	}
)

func NewManager(docker *Docker, image string) *Manager {
	if image == "" {
		image = DefaultImage
	}
	return &Manager{
		docker: docker,
		image:  image,
		ready:  waitForChain,
		logger: logger.Named("devchain_manager"),
	}
}

// Up replaces any previous container of each chain with a fresh one and waits until its RPC answers.
func (m *Manager) Up(ctx context.Context, chains ...Chain) ([]Endpoint, error) {
	if err := m.docker.ensureImage(ctx, m.image); err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(chains))
	for _, chain := range chains {
		name := containerName(chain.Name)
		if err := m.docker.removeContainer(ctx, name); err != nil {
			return nil, err
		}

		config, hostConfig := anvilContainer(m.image, chain)
		id, err := m.docker.startContainer(ctx, name, config, hostConfig)
		if err != nil {
			return nil, err
		}

		endpoint := Endpoint{
			Name:        chain.Name,
			ContainerID: id,
			RPCURL:      fmt.Sprintf("http://127.0.0.1:%d", chain.Port),
			ChainID:     chain.ChainID,
		}
		if err := m.ready(ctx, endpoint.RPCURL, chain.ChainID); err != nil {
			return nil, fmt.Errorf("dev chain %s did not become ready: %w", chain.Name, err)
		}

		m.logger.
			With("chain", chain.Name).
			With("rpc_url", endpoint.RPCURL).
			With("chain_id", chain.ChainID).
			Info("dev chain started")
		endpoints = append(endpoints, endpoint)
	}

	return endpoints, nil
}

// Down removes the containers of the named chains.
func (m *Manager) Down(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := m.docker.removeContainer(ctx, containerName(name)); err != nil {
			return err
		}
		m.logger.With("chain", name).Info("dev chain removed")
	}
	return nil
}

func containerName(chain string) string {
	return containerPrefix + chain
}

func anvilContainer(imageName string, chain Chain) (*container.Config, *container.HostConfig) {
	port := nat.Port(rpcPort)

	config := &container.Config{
		Image:      imageName,
		Entrypoint: []string{"anvil"},
		Cmd: []string{
			"--host", "0.0.0.0",
			"--port", port.Port(),
			"--chain-id", strconv.FormatUint(chain.ChainID, 10),
		},
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels: map[string]string{
			labelProject: projectName,
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(chain.Port)}},
		},
	}

	return config, hostConfig
}

// waitForChain polls eth_chainId until the node answers with the expected id.
func waitForChain(ctx context.Context, url string, chainID uint64) error {
	client, err := rpc.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(readyInterval), uint64(readyTimeout/readyInterval)),
		ctx,
	)

	return backoff.Retry(func() error {
		var got hexutil.Uint64
		if err := client.Call(ctx, &got, rpc.MethodChainID, nil); err != nil {
			return err
		}
		if uint64(got) != chainID {
			return backoff.Permanent(fmt.Errorf("node reports chain id %d, expected %d", uint64(got), chainID))
		}
		return nil
	}, policy)
}
