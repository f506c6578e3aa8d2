package verify

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadState reads the chain state used by sealed exports. A missing path or
// file starts a new chain.
func LoadState(path string) (*ChainState, error) {
	if path == "" {
		return newState(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newState(), nil
		}
		return nil, fmt.Errorf("open state: %w", err)
	}
	defer f.Close()

	var st ChainState
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	if st.LastHeadHash == "" {
		st.LastHeadHash = zeroHash()
	}
	return &st, nil
}

// SaveState writes state atomically (temp file + rename). An empty path is a no-op.
func SaveState(path string, state *ChainState) error {
	if path == "" {
		return nil
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(state); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp state: %w", err)
	}
	return os.Rename(tmp, path)
}

func newState() *ChainState {
	return &ChainState{LastChainIndex: 0, LastHeadHash: zeroHash()}
}

// zeroHash is the genesis head: 64 hex zeros, the length of a SHA-256 digest.
func zeroHash() string {
	return "0000000000000000000000000000000000000000000000000000000000000000"
}
