package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

// maxTradesFileBytes bounds what LoadTradesFile and DecodeTrades will read
const maxTradesFileBytes = 256 << 20

// tradesEnvelope is the object form {"trades": [...]}
type tradesEnvelope struct {
	Trades []contracts.Trade `json:"trades"`
}

// LoadTradesFile reads a JSON trade file
func LoadTradesFile(path string) ([]contracts.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trades file: %w", err)
	}
	defer f.Close()

	trades, err := DecodeTrades(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trades, nil
}

// DecodeTrades accepts either a bare JSON array of trades or {"trades": [...]}.
// Unknown fields are rejected so typos in exported files surface early.
func DecodeTrades(r io.Reader) ([]contracts.Trade, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTradesFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}
	if len(data) > maxTradesFileBytes {
		return nil, fmt.Errorf("trades input exceeds %d bytes", maxTradesFileBytes)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []contracts.Trade{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if data[0] == '[' {
		var trades []contracts.Trade
		if err := dec.Decode(&trades); err != nil {
			return nil, fmt.Errorf("decode trades: %w", err)
		}
		return trades, nil
	}

	var env tradesEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode trades: %w", err)
	}
	if env.Trades == nil {
		env.Trades = []contracts.Trade{}
	}
	return env.Trades, nil
}
