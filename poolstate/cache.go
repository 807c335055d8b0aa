package poolstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arbiter-labs/hyperarb/types"
)

// cacheFileVersion guards the on-disk schema. On version mismatch or
// parse failure, the file is ignored and pools are re-discovered.
const cacheFileVersion = 1

type cacheFile struct {
	Version int           `json:"version"`
	ChainID uint64        `json:"chainId"`
	Pools   []*types.Pool `json:"pools"`
}

// cacheFileName returns "pools-<chainId>.json"
func cacheFileName(dir string, chainID uint64) string {
	return filepath.Join(dir, fmt.Sprintf("pools-%d.json", chainID))
}

// SaveToCache serializes every known pool to "<dir>/pools-<chainId>.json".
// Big-integer fields are written as base-10 strings via types.U256's
// MarshalJSON.
func (m *Manager) SaveToCache(dir string, chainID uint64) error {
	pools := m.Snapshot()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("poolstate: create cache dir: %w", err)
	}

	payload := cacheFile{Version: cacheFileVersion, ChainID: chainID, Pools: pools}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("poolstate: marshal cache: %w", err)
	}

	path := cacheFileName(dir, chainID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("poolstate: write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("poolstate: rename cache: %w", err)
	}
	return nil
}

// LoadFromCache replaces the manager's pool set and indexes with the
// contents of "<dir>/pools-<chainId>.json", rebuilding every index from
// scratch. A missing file, parse failure, or version mismatch is not an
// error: the manager is left empty so callers fall back to rediscovery
//.
func (m *Manager) LoadFromCache(dir string, chainID uint64) error {
	path := cacheFileName(dir, chainID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.log.Info("no pool cache file found, starting empty", "path", path)
			return nil
		}
		return fmt.Errorf("poolstate: read cache: %w", err)
	}

	var payload cacheFile
	if err := json.Unmarshal(data, &payload); err != nil {
		m.log.Warn("pool cache file is corrupt, ignoring", "path", path, "err", err)
		return nil
	}
	if payload.Version != cacheFileVersion {
		m.log.Warn("pool cache file version mismatch, ignoring",
			"path", path, "got", payload.Version, "want", cacheFileVersion)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = make(map[types.Address]*types.Pool, len(payload.Pools))
	m.byToken = make(map[types.Address]map[types.Address]struct{})
	m.byPair = make(map[string]map[types.Address]struct{})
	m.byProtocol = make(map[types.Protocol]map[types.Address]struct{})

	var maxGen uint64
	for _, p := range payload.Pools {
		if err := p.Validate(); err != nil {
			m.log.Warn("skipping invalid pool from cache", "pool", p.Address, "err", err)
			continue
		}
		m.pools[p.Address] = p
		m.indexInsert(p)
		if p.Generation > maxGen {
			maxGen = p.Generation
		}
	}
	// The generation counter must never regress below what's recorded on
	// disk, or a subsequent mutation could reissue a generation a cached
	// reader already observed as "current".
	if cur := m.generation.Load(); maxGen > cur {
		m.generation.Store(maxGen)
	}
	return nil
}
