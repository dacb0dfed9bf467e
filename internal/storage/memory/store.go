package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"liquidationRouter/internal/model"
)

// Store keeps engine state in process memory. Records are copied on the way
// in and out, so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	settings  *model.Settings
	admin     common.Address
	protocols map[common.Address]model.ProtocolConfig
	order     []common.Address
	nonces    map[common.Address]uint64
	swaps     []model.SwapRecord
	nextSeq   uint64
}

func NewStore() *Store {
	return &Store{
		protocols: make(map[common.Address]model.ProtocolConfig),
		nonces:    make(map[common.Address]uint64),
		nextSeq:   1,
	}
}

func (s *Store) LoadSettings(context.Context) (model.Settings, common.Address, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return model.Settings{}, common.Address{}, false, nil
	}
	return s.settings.Clone(), s.admin, true, nil
}

func (s *Store) InitSettings(_ context.Context, admin common.Address, settings model.Settings) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings != nil {
		return false, nil
	}
	cp := settings.Clone()
	s.settings = &cp
	s.admin = admin
	return true, nil
}

func (s *Store) ReplaceSettings(_ context.Context, settings model.Settings) error {
	cp := settings.Clone()
	s.mu.Lock()
	s.settings = &cp
	s.mu.Unlock()
	return nil
}

func (s *Store) PutProtocol(_ context.Context, cfg model.ProtocolConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.protocols[cfg.Address]; !ok {
		s.order = append(s.order, cfg.Address)
	}
	s.protocols[cfg.Address] = cfg.Clone()
	return nil
}

func (s *Store) GetProtocol(_ context.Context, addr common.Address) (model.ProtocolConfig, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.protocols[addr]
	if !ok {
		return model.ProtocolConfig{}, false, nil
	}
	return cfg.Clone(), true, nil
}

func (s *Store) ListProtocols(context.Context) ([]model.ProtocolConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProtocolConfig, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.protocols[addr].Clone())
	}
	return out, nil
}

func (s *Store) LastNonce(_ context.Context, protocol common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonces[protocol], nil
}

func (s *Store) AdvanceNonce(_ context.Context, protocol common.Address, prev, next uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nonces[protocol] != prev || next <= prev {
		return false, nil
	}
	s.nonces[protocol] = next
	return true, nil
}

func (s *Store) AppendSwap(_ context.Context, rec model.SwapRecord) (model.SwapRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := rec.Clone()
	stored.SequenceID = s.nextSeq
	s.nextSeq++
	s.swaps = append(s.swaps, stored)
	return stored.Clone(), nil
}

func (s *Store) SwapHistory(_ context.Context, user *common.Address, limit int) ([]model.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SwapRecord, 0)
	for _, rec := range s.swaps {
		if len(out) >= limit {
			break
		}
		if user != nil && rec.User != *user {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// LatestSequence returns the highest assigned sequence id, zero when empty.
func (s *Store) LatestSequence(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq - 1, nil
}

// SwapsBetween returns records with sequence ids in [from, to].
func (s *Store) SwapsBetween(_ context.Context, from, to uint64) ([]model.SwapRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.SwapRecord, 0)
	for _, rec := range s.swaps {
		if rec.SequenceID < from {
			continue
		}
		if rec.SequenceID > to {
			break
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}
