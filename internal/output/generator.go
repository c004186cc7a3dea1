// Package output writes the deployed addresses as a YAML file for the bridge operators.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/deployment"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	contractMediator = "mediator"
	contractAsset    = "asset"
)

type (
	// ChainInfo describes how to reach one side.
	ChainInfo struct {
		RPCURL   string
		ChainID  uint64
		Mediator contracts.Name
		Asset    contracts.Name
	}

	Generator struct {
		catalog contracts.Catalog
		writer  filesystem.Writer
	}
)

func NewGenerator(catalog contracts.Catalog, writer filesystem.Writer) *Generator {
	return &Generator{catalog: catalog, writer: writer}
}

// Build assembles the model of a finished deployment.
func (g *Generator) Build(deployer common.Address, result deployment.Result, home, foreign ChainInfo) Model {
	return Model{
		Deployer: deployer,
		Chains: map[string]ChainModel{
			string(deployment.SideHome):    g.chain(home, result.Home),
			string(deployment.SideForeign): g.chain(foreign, result.Foreign),
		},
	}
}

// Generate writes the model of a finished deployment to path.
func (g *Generator) Generate(path string, deployer common.Address, result deployment.Result, home, foreign ChainInfo) error {
	data, err := yaml.Marshal(g.Build(deployer, result, home, foreign))
	if err != nil {
		return fmt.Errorf("could not marshal output model. Err: '%w'", err)
	}

	if err := g.writer.WriteBytes(path, data); err != nil {
		return fmt.Errorf("could not write output file. Err: '%w'", err)
	}

	return nil
}

func (g *Generator) chain(info ChainInfo, side deployment.SideResult) ChainModel {
	return ChainModel{
		RPCURL:  info.RPCURL,
		ChainID: info.ChainID,
		Contracts: map[string]ContractConfig{
			contractMediator: {
				Address: side.Mediator,
				Block:   side.MediatorBlock,
				ABI:     g.abi(info.Mediator),
			},
			contractAsset: {
				Address: side.Asset,
				Block:   side.AssetBlock,
				ABI:     g.abi(info.Asset),
			},
		},
	}
}

func (g *Generator) abi(name contracts.Name) SingleQuotedString {
	artifact, ok := g.catalog[name]
	if !ok {
		return ""
	}
	return SingleQuotedString(compactJSON(artifact.RawABI))
}

func compactJSON(jsonStr string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(jsonStr)); err != nil {
		return jsonStr
	}
	return buf.String()
}
