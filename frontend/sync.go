// Package frontend publishes deployment artifacts to the front-end repository: the address
// registry keyed by chain id and the lottery ABI.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/flock"

	"github.com/smartcontractkit/lottery-deployments/internal/jsonutils"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const lockRetryDelay = 100 * time.Millisecond

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	AddressesFile string        // Required: The path to the address registry document
	ABIFile       string        // Required: The path to the ABI document
	Logger        logger.Logger // Optional: Defaults to a no-op logger
}

// Syncer writes deployment artifacts to the front-end documents.
type Syncer struct {
	cfg SyncerConfig
}

// NewSyncer creates a new Syncer.
func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if cfg.AddressesFile == "" {
		return nil, errors.New("addresses file is required")
	}
	if cfg.ABIFile == "" {
		return nil, errors.New("abi file is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Syncer{cfg: cfg}, nil
}

// Sync records the deployed address and replaces the ABI document. Both must succeed.
func (s *Syncer) Sync(ctx context.Context, chainID uint64, addr common.Address, abi []byte) error {
	if err := s.SyncAddress(ctx, chainID, addr); err != nil {
		return err
	}

	return s.SyncABI(abi)
}

// SyncAddress adds addr to the registry under chainID. The read-modify-write holds an exclusive
// lock on a sibling .lock file and the document is replaced atomically. A missing registry is
// created.
func (s *Syncer) SyncAddress(ctx context.Context, chainID uint64, addr common.Address) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.AddressesFile), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	lock := flock.New(s.cfg.AddressesFile + ".lock")

	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.cfg.AddressesFile, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", s.cfg.AddressesFile)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			s.cfg.Logger.Warnw("Failed to unlock address registry", "path", s.cfg.AddressesFile, "err", uerr)
		}
	}()

	registry, err := s.LoadRegistry()
	if err != nil {
		return err
	}

	if !registry.Add(chainID, addr) {
		s.cfg.Logger.Infow("Address already registered", "chainID", chainID, "address", addr.Hex())
		return nil
	}

	if err := jsonutils.WriteFile(s.cfg.AddressesFile, registry); err != nil {
		return fmt.Errorf("failed to write address registry: %w", err)
	}

	s.cfg.Logger.Infow("Registered contract address",
		"chainID", chainID, "address", addr.Hex(), "path", s.cfg.AddressesFile,
		"registeredChains", registry.ChainIDs(),
	)

	return nil
}

// LoadRegistry reads the address registry document. A missing document is an empty registry.
func (s *Syncer) LoadRegistry() (AddressRegistry, error) {
	registry, err := jsonutils.LoadFile[AddressRegistry](s.cfg.AddressesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return AddressRegistry{}, nil
		}

		return nil, fmt.Errorf("failed to load address registry: %w", err)
	}

	// A document containing null decodes to a nil map.
	if registry == nil {
		registry = AddressRegistry{}
	}

	return registry, nil
}

// SyncABI replaces the ABI document with abi. The previous content is never merged.
func (s *Syncer) SyncABI(abi []byte) error {
	if len(abi) == 0 {
		return errors.New("abi is empty")
	}

	if err := jsonutils.WriteFileAtomic(s.cfg.ABIFile, abi); err != nil {
		return fmt.Errorf("failed to write abi: %w", err)
	}

	s.cfg.Logger.Infow("Wrote contract ABI", "path", s.cfg.ABIFile)

	return nil
}
