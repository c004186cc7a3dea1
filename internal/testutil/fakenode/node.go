// Package fakenode serves the node methods the deployer uses from memory, enforcing strict
// nonce order and tracking the state the deployment calls produce.
package fakenode

import (
	"math/big"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
)

const (
	DefaultBlockGasLimit uint64 = 8_000_000
	DefaultGasEstimate   uint64 = 100_000
)

type (
	Option func(*Node)

	// Call is a transaction sent to an existing address.
	Call struct {
		Hash  common.Hash
		From  common.Address
		To    common.Address
		Nonce uint64
		Gas   uint64
		Data  []byte
	}

	// Contract is the tracked state of a contract created on the node.
	Contract struct {
		Address        common.Address
		Creator        common.Address
		Code           []byte
		Block          uint64
		Implementation common.Address
		Version        uint64
		ProxyOwner     common.Address
		Owner          common.Address
		Initialized    bool
		Init           contracts.InitArgs
		PromoGenes     []*big.Int
		PromoOwners    []common.Address
	}

	mined struct {
		hash            common.Hash
		block           uint64
		status          uint64
		gasUsed         uint64
		contractAddress *common.Address
		polls           int
	}

	Node struct {
		mu sync.Mutex

		server *httptest.Server
		rpc    *gethrpc.Server

		chainID       *big.Int
		signer        types.Signer
		blockGasLimit uint64
		gasEstimate   uint64
		pendingPolls  int
		failing       []*w3.Func

		block     uint64
		nonces    map[common.Address]uint64
		used      map[common.Address][]uint64
		receipts  map[common.Hash]*mined
		contracts map[common.Address]*Contract
		created   []common.Address
		calls     []Call
		methods   []string
	}
)

// WithChainID makes the node require EIP-155 signatures for id. Zero accepts homestead signatures only.
func WithChainID(id int64) Option {
	return func(n *Node) { n.chainID = big.NewInt(id) }
}

func WithBlockGasLimit(limit uint64) Option {
	return func(n *Node) { n.blockGasLimit = limit }
}

func WithGasEstimate(gas uint64) Option {
	return func(n *Node) { n.gasEstimate = gas }
}

// WithPendingPolls answers null to the first polls receipt queries of every transaction.
func WithPendingPolls(polls int) Option {
	return func(n *Node) { n.pendingPolls = polls }
}

// WithNonce starts address at nonce instead of zero.
func WithNonce(address common.Address, nonce uint64) Option {
	return func(n *Node) { n.nonces[address] = nonce }
}

// WithFailing mines calls to fn with a failed status and no state change.
func WithFailing(fn *w3.Func) Option {
	return func(n *Node) { n.failing = append(n.failing, fn) }
}

// New starts a node that is closed when the test ends.
func New(t testing.TB, opts ...Option) *Node {
	t.Helper()

	n := &Node{
		chainID:       new(big.Int),
		blockGasLimit: DefaultBlockGasLimit,
		gasEstimate:   DefaultGasEstimate,
		nonces:        make(map[common.Address]uint64),
		used:          make(map[common.Address][]uint64),
		receipts:      make(map[common.Hash]*mined),
		contracts:     make(map[common.Address]*Contract),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.chainID.Sign() == 0 {
		n.signer = types.HomesteadSigner{}
	} else {
		n.signer = types.NewEIP155Signer(n.chainID)
	}

	n.rpc = gethrpc.NewServer()
	if err := n.rpc.RegisterName("eth", &ethAPI{node: n}); err != nil {
		t.Fatalf("failed to register fake eth api: %v", err)
	}
	n.server = httptest.NewServer(n.rpc)

	t.Cleanup(func() {
		n.server.Close()
		n.rpc.Stop()
	})

	return n
}

func (n *Node) URL() string {
	return n.server.URL
}

// Methods returns every method served, in order.
func (n *Node) Methods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.methods)
}

// Count returns how often method was served.
func (n *Node) Count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, m := range n.methods {
		if m == method {
			count++
		}
	}
	return count
}

// NoncesUsed returns the nonces of accepted transactions from address, in order.
func (n *Node) NoncesUsed(address common.Address) []uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.used[address])
}

// Created returns created contract addresses in creation order.
func (n *Node) Created() []common.Address {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.created)
}

func (n *Node) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.calls)
}

// Contract returns a copy of the tracked contract at address.
func (n *Node) Contract(address common.Address) (Contract, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[address]
	if !ok {
		return Contract{}, false
	}
	copied := *c
	copied.PromoGenes = slices.Clone(c.PromoGenes)
	copied.PromoOwners = slices.Clone(c.PromoOwners)
	return copied, true
}

// ClearFailing makes every later call succeed again.
func (n *Node) ClearFailing() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing = nil
}

func (n *Node) record(method string) {
	n.methods = append(n.methods, method)
}
