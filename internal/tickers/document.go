package tickers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/drakos74/signal-router/internal/model"
)

// document is the durable form of the store.
// It is a json object keyed by ticker that keeps the insertion order of its entries.
type document struct {
	order   []model.Ticker
	entries map[model.Ticker]model.TickerConfig
}

func newDocument() *document {
	return &document{
		order:   make([]model.Ticker, 0),
		entries: make(map[model.Ticker]model.TickerConfig),
	}
}

func (d *document) put(cfg model.TickerConfig) {
	if _, ok := d.entries[cfg.Ticker]; !ok {
		d.order = append(d.order, cfg.Ticker)
	}
	d.entries[cfg.Ticker] = cfg
}

func (d *document) remove(ticker model.Ticker) bool {
	if _, ok := d.entries[ticker]; !ok {
		return false
	}
	delete(d.entries, ticker)
	order := make([]model.Ticker, 0, len(d.order))
	for _, t := range d.order {
		if t != ticker {
			order = append(order, t)
		}
	}
	d.order = order
	return true
}

func (d *document) list() []model.TickerConfig {
	configs := make([]model.TickerConfig, len(d.order))
	for i, t := range d.order {
		configs[i] = d.entries[t]
	}
	return configs
}

func (d *document) clone() *document {
	c := newDocument()
	for _, cfg := range d.list() {
		c.put(cfg)
	}
	return c
}

// MarshalJSON writes the entries in insertion order.
func (d *document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(t))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.entries[t])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the entries keeping the order of the file.
func (d *document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object but got %v", tok)
	}
	doc := newDocument()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected ticker but got %v", tok)
		}
		var cfg model.TickerConfig
		if err := dec.Decode(&cfg); err != nil {
			return fmt.Errorf("could not decode config for '%s': %w", key, err)
		}
		cfg.Ticker = model.NewTicker(key)
		if err := cfg.Validate(); err != nil {
			return err
		}
		doc.put(cfg)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = *doc
	return nil
}
