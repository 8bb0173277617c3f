package tickers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/drakos74/signal-router/internal/model"
	"github.com/drakos74/signal-router/internal/storage"
	"github.com/rs/zerolog/log"
)

// FileName is the durable resource name of the store.
const FileName = "configurations"

func stKey() storage.Key {
	return storage.Key{
		Label: FileName,
	}
}

// Store maps tickers to their trading parameters and mirrors them to a durable storage.
// All operations are serialised on a single lock, including the durable write.
type Store struct {
	storage storage.Persistence
	doc     *document
	lock    *sync.RWMutex
}

// NewStore creates a new store and loads the current state from the storage.
func NewStore(st storage.Persistence) (*Store, error) {
	s := &Store{
		storage: st,
		doc:     newDocument(),
		lock:    new(sync.RWMutex),
	}
	_, err := s.Load()
	return s, err
}

// Load replaces the in-memory state with the durable state.
// A missing resource results in an empty store.
func (s *Store) Load() ([]model.TickerConfig, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	doc := newDocument()
	err := s.storage.Load(stKey(), doc)
	if err != nil {
		if errors.Is(err, storage.NotFoundErr) {
			s.doc = newDocument()
			log.Info().Str("store", FileName).Msg("no configuration found")
			return s.doc.list(), nil
		}
		if !errors.Is(err, storage.CorruptErr) {
			err = fmt.Errorf("%s: %w", err.Error(), storage.CorruptErr)
		}
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	s.doc = doc
	log.Info().Str("store", FileName).Int("num", len(doc.order)).Msg("loaded configuration")
	return s.doc.list(), nil
}

// Set validates and inserts or overwrites the config for the ticker and persists the whole mapping.
// The in-memory state is only updated if the durable write succeeded.
func (s *Store) Set(ticker string, orderSizeUSD, minProfitPercent float64) (model.TickerConfig, error) {
	cfg, err := model.NewTickerConfig(ticker, orderSizeUSD, minProfitPercent)
	if err != nil {
		return cfg, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	doc := s.doc.clone()
	doc.put(cfg)
	if err := s.storage.Store(stKey(), doc); err != nil {
		return cfg, fmt.Errorf("could not save configuration for '%s': %w", cfg.Ticker, err)
	}
	s.doc = doc
	log.Info().Str("ticker", string(cfg.Ticker)).
		Float64("order-size", cfg.OrderSizeUSD).
		Float64("min-profit", cfg.MinProfitPercent).
		Msg("config saved")
	return cfg, nil
}

// Delete removes the config for the ticker and persists the whole mapping.
func (s *Store) Delete(ticker string) error {
	t := model.NewTicker(ticker)
	s.lock.Lock()
	defer s.lock.Unlock()
	doc := s.doc.clone()
	if !doc.remove(t) {
		return fmt.Errorf("no config for '%s': %w", t, storage.NotFoundErr)
	}
	if err := s.storage.Store(stKey(), doc); err != nil {
		return fmt.Errorf("could not save configuration without '%s': %w", t, err)
	}
	s.doc = doc
	log.Info().Str("ticker", string(t)).Msg("config removed")
	return nil
}

// Get returns the config for the ticker.
func (s *Store) Get(ticker model.Ticker) (model.TickerConfig, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	cfg, ok := s.doc.entries[model.NewTicker(string(ticker))]
	return cfg, ok
}

// List returns all configs in insertion order.
func (s *Store) List() []model.TickerConfig {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.doc.list()
}
