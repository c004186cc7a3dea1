package deployment

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/compose-network/mediator-deployer/internal/contracts"
	"github.com/compose-network/mediator-deployer/internal/infra/filesystem"
	"github.com/compose-network/mediator-deployer/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

type (
	// Record is a confirmed deployment step. Contract and Address are set for contract creations only.
	Record struct {
		Side     Side           `json:"side"`
		Step     string         `json:"step"`
		Contract contracts.Name `json:"contract,omitempty"`
		Address  common.Address `json:"address"`
		Block    uint64         `json:"block"`
		TxHash   common.Hash    `json:"txHash"`
	}

	// Ledger holds the records of a run and persists every new record before the next step starts.
	// A rerun that opens the same ledger skips the recorded steps.
	Ledger struct {
		mu      sync.Mutex
		account common.Address
		chains  map[Side]uint64
		records []Record
		persist func(ledgerFile) error
	}

	ledgerFile struct {
		Account common.Address  `json:"account"`
		Chains  map[Side]uint64 `json:"chains,omitempty"`
		Records []Record        `json:"records"`
	}

	// LedgerStore opens ledgers backed by a JSON state file.
	LedgerStore struct {
		path   string
		reader filesystem.Reader
		writer filesystem.Writer
		logger *slog.Logger
	}
)

// NewMemoryLedger returns a ledger that is never written to disk.
func NewMemoryLedger(account common.Address) *Ledger {
	return &Ledger{account: account, chains: map[Side]uint64{}, persist: func(ledgerFile) error { return nil }}
}

func NewLedgerStore(path string, reader filesystem.Reader, writer filesystem.Writer) *LedgerStore {
	return &LedgerStore{
		path:   path,
		reader: reader,
		writer: writer,
		logger: logger.Named("ledger_store").With("path", path),
	}
}

// Open loads the state file for account, or starts an empty ledger when it does not exist yet.
// A state file written by another account is rejected.
func (s *LedgerStore) Open(account common.Address) (*Ledger, error) {
	ledger := &Ledger{
		account: account,
		chains:  map[Side]uint64{},
		persist: func(file ledgerFile) error { return s.writer.WriteJSON(s.path, file) },
	}

	exists, err := s.reader.Exists(s.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.Info("starting new deployment ledger")
		return ledger, nil
	}

	var file ledgerFile
	if err := s.reader.ReadJSON(s.path, &file); err != nil {
		return nil, fmt.Errorf("failed to load deployment ledger: %w", err)
	}
	if file.Account != account {
		return nil, fmt.Errorf("deployment ledger belongs to %s, not %s", file.Account.Hex(), account.Hex())
	}

	for side, chainID := range file.Chains {
		ledger.chains[side] = chainID
	}
	ledger.records = file.Records
	s.logger.With("records", len(file.Records)).Info("resuming from deployment ledger")

	return ledger, nil
}

// Bind records the chain id a side is deployed on. A ledger already bound to another
// chain id for that side is rejected, its records would not exist on the node.
func (l *Ledger) Bind(side Side, chainID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bound, ok := l.chains[side]; ok {
		if bound != chainID {
			return fmt.Errorf("deployment ledger of %s was written against chain id %d, node reports %d", side, bound, chainID)
		}
		return nil
	}

	l.chains[side] = chainID
	if err := l.persist(l.file()); err != nil {
		return fmt.Errorf("failed to persist chain id of %s: %w", side, err)
	}
	return nil
}

// Find returns the record of a completed step.
func (l *Ledger) Find(side Side, step string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range l.records {
		if record.Side == side && record.Step == step {
			return record, true
		}
	}
	return Record{}, false
}

// Add appends a record and persists the ledger.
func (l *Ledger) Add(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
	if err := l.persist(l.file()); err != nil {
		return fmt.Errorf("failed to persist record %s/%s: %w", record.Side, record.Step, err)
	}
	return nil
}

func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

func (l *Ledger) file() ledgerFile {
	return ledgerFile{Account: l.account, Chains: maps.Clone(l.chains), Records: l.records}
}
