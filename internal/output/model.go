package output

import (
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type (
	Model struct {
		Deployer common.Address        `yaml:"deployer"`
		Chains   map[string]ChainModel `yaml:"chains"`
	}

	ChainModel struct {
		RPCURL    string                    `yaml:"rpc-url"`
		ChainID   uint64                    `yaml:"chain-id"`
		Contracts map[string]ContractConfig `yaml:"contracts"`
	}

	ContractConfig struct {
		Address common.Address     `yaml:"address"`
		Block   uint64             `yaml:"block,omitempty"`
		ABI     SingleQuotedString `yaml:"abi,omitempty"`
	}

	SingleQuotedString string
)

func (s SingleQuotedString) MarshalYAML() (any, error) {
	node := &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(s),
	}
	return node, nil
}
