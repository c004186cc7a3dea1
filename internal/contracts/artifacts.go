// Package contracts loads the compiled contract artifacts and encodes the calls the deployer makes on them.
package contracts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/compose-network/mediator-deployer/internal/infra/filesystem"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

type Name string

const (
	EternalStorageProxy Name = "EternalStorageProxy"
	HomeMediator        Name = "HomeMediator"
	ForeignMediator     Name = "ForeignMediator"
	SimpleBridgeKitty   Name = "SimpleBridgeKitty"
	KittyCore           Name = "KittyCore"
)

// surface lists the functions every artifact must expose for the deployment to drive it.
var surface = map[Name][]*w3.Func{
	EternalStorageProxy: {FuncUpgradeTo, FuncTransferProxyOwnership},
	HomeMediator:        {FuncInitialize},
	ForeignMediator:     {FuncInitialize},
	SimpleBridgeKitty:   {FuncTransferOwnership},
	KittyCore:           {FuncCreatePromoKitty},
}

type (
	Artifact struct {
		Name     Name
		ABI      abi.ABI
		RawABI   string
		Bytecode []byte
	}

	// Catalog holds loaded artifacts by logical name.
	Catalog map[Name]Artifact

	// truffle build output, one file per contract
	artifactFile struct {
		ContractName string          `json:"contractName"`
		ABI          json.RawMessage `json:"abi"`
		Bytecode     string          `json:"bytecode"`
	}
)

// Names returns every artifact a full two-sided deployment needs.
func Names() []Name {
	return []Name{EternalStorageProxy, HomeMediator, ForeignMediator, SimpleBridgeKitty, KittyCore}
}

// Load reads <dir>/<name>.json for each name and checks the call surface against its ABI.
func Load(reader filesystem.Reader, dir string, names ...Name) (Catalog, error) {
	catalog := make(Catalog, len(names))
	for _, name := range names {
		artifact, err := loadArtifact(reader, filepath.Join(dir, string(name)+".json"), name)
		if err != nil {
			return nil, err
		}
		catalog[name] = artifact
	}
	return catalog, nil
}

func loadArtifact(reader filesystem.Reader, path string, name Name) (Artifact, error) {
	var file artifactFile
	if err := reader.ReadJSON(path, &file); err != nil {
		return Artifact{}, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(string(file.ABI)))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
	}

	bytecode := common.FromHex(file.Bytecode)
	if len(bytecode) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no bytecode", name)
	}

	artifact := Artifact{
		Name:     name,
		ABI:      parsedABI,
		RawABI:   string(file.ABI),
		Bytecode: bytecode,
	}

	for _, fn := range surface[name] {
		if !artifact.Supports(fn) {
			return Artifact{}, fmt.Errorf("artifact %s does not implement %s", name, fn.Signature)
		}
	}

	return artifact, nil
}

// Get returns the artifact or an error naming the missing contract.
func (c Catalog) Get(name Name) (Artifact, error) {
	artifact, ok := c[name]
	if !ok {
		return Artifact{}, fmt.Errorf("artifact %s is not loaded", name)
	}
	return artifact, nil
}

// Supports reports whether the ABI has a method with the function's selector.
func (a Artifact) Supports(fn *w3.Func) bool {
	_, err := a.ABI.MethodById(fn.Selector[:])
	return err == nil
}

// DeployData is the creation payload: bytecode followed by the packed constructor arguments.
func (a Artifact) DeployData(args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor: %w", a.Name, err)
	}

	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)
	return append(data, packed...), nil
}
