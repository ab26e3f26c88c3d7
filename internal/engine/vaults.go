package engine

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// vaultIndex is the persisted global record of vaults and the active one.
type vaultIndex struct {
	Active string          `json:"active"`
	Vaults []*models.Vault `json:"vaults"`
}

// loadVaultIndex reads the global index, creating a default vault on first
// run. A corrupt or unreadable index degrades to a fresh default vault.
func (s *Store) loadVaultIndex() error {
	data, err := s.provider.ReadIndex()
	if err != nil {
		s.logger.Warn("engine: read vault index failed", slog.String("error", err.Error()))
	}

	var idx vaultIndex
	if data != nil {
		if err := json.Unmarshal(data, &idx); err != nil {
			s.logger.Warn("engine: corrupt vault index, starting fresh",
				slog.String("error", err.Error()))
			idx = vaultIndex{}
		}
	}

	for _, v := range idx.Vaults {
		s.vaults[v.ID] = v
	}
	if _, ok := s.vaults[idx.Active]; ok {
		s.activeVault = idx.Active
	}

	if len(s.vaults) == 0 {
		now := time.Now()
		v := &models.Vault{
			ID:        uuid.NewString(),
			Name:      "My Vault",
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.vaults[v.ID] = v
		s.activeVault = v.ID
		s.saveVaultIndexLocked()
	}
	if s.activeVault == "" {
		// Pick deterministically when the index lost its active pointer.
		vs := sortedValues(s.vaults, func(v *models.Vault) string { return v.ID })
		s.activeVault = vs[0].ID
		s.saveVaultIndexLocked()
	}
	return nil
}

func (s *Store) saveVaultIndexLocked() {
	idx := vaultIndex{
		Active: s.activeVault,
		Vaults: sortedValues(s.vaults, func(v *models.Vault) string { return v.ID }),
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return
	}
	if err := s.provider.WriteIndex(data); err != nil {
		s.logger.Warn("engine: write vault index failed", slog.String("error", err.Error()))
	}
}

// reloadVaultIndexLocked refreshes the vault directory after an external
// change to the global index. The active vault is never switched out from
// under the editor and never dropped from the directory, even when the
// external index no longer lists it.
func (s *Store) reloadVaultIndexLocked() {
	data, err := s.provider.ReadIndex()
	if err != nil || data == nil {
		return
	}
	var idx vaultIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Warn("engine: ignoring corrupt external vault index",
			slog.String("error", err.Error()))
		return
	}

	vaults := make(map[string]*models.Vault, len(idx.Vaults))
	for _, v := range idx.Vaults {
		vaults[v.ID] = v
	}
	if _, ok := vaults[s.activeVault]; !ok {
		vaults[s.activeVault] = s.vaults[s.activeVault]
	}
	s.vaults = vaults

	s.logger.Info("engine: reloaded externally changed vault index",
		slog.Int("vaults", len(s.vaults)))
	s.emit("vault.index.updated", nil)
}

// loadActiveVault replaces the in-memory collections with the active
// vault's stored state. Unreadable collections load empty.
func (s *Store) loadActiveVault() {
	for _, collection := range storage.Collections {
		data, err := s.provider.Read(s.activeVault, collection)
		if err != nil {
			s.logger.Warn("engine: load collection failed",
				slog.String("collection", collection),
				slog.String("error", err.Error()))
			continue
		}
		if data == nil {
			continue
		}
		s.unmarshalCollection(collection, data)
	}
	s.rebuildPageLinksLocked()
	s.logger.Info("engine: vault loaded",
		slog.String("vault", s.activeVault),
		slog.Int("pages", len(s.pages)),
		slog.Int("blocks", len(s.blocks)))
}

// ActiveVault returns the id of the currently active vault.
func (s *Store) ActiveVault() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeVault
}

// ListVaults returns all known vaults ordered by creation time.
func (s *Store) ListVaults() []*models.Vault {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sortedValues(s.vaults, func(v *models.Vault) string { return v.ID })
	copies := make([]*models.Vault, len(out))
	for i, v := range out {
		cp := *v
		copies[i] = &cp
	}
	return copies
}

// CreateVault registers a new empty vault without switching to it.
func (s *Store) CreateVault(name string) *models.Vault {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	v := &models.Vault{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.vaults[v.ID] = v
	s.saveVaultIndexLocked()
	cp := *v
	return &cp
}

// SwitchVault synchronously flushes the outgoing vault, clears all
// in-memory collections, and loads the target vault. This path is never
// debounced: a vault switch must not lose data. Switching to the already
// active vault or an unknown id is a no-op returning false.
func (s *Store) SwitchVault(vaultID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vaultID == s.activeVault {
		return false
	}
	if _, ok := s.vaults[vaultID]; !ok {
		return false
	}

	s.flushAllLocked()
	s.resetCollections()
	s.activeVault = vaultID
	s.saveVaultIndexLocked()
	s.loadActiveVault()
	s.emit("vault.switched", map[string]string{"id": vaultID})
	return true
}

// DeleteVault removes a vault and its stored collections. The active vault
// cannot be deleted.
func (s *Store) DeleteVault(vaultID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vaultID == s.activeVault {
		return false
	}
	if _, ok := s.vaults[vaultID]; !ok {
		return false
	}
	delete(s.vaults, vaultID)
	s.saveVaultIndexLocked()
	if err := s.provider.DeleteVault(vaultID); err != nil {
		s.logger.Warn("engine: delete vault storage failed",
			slog.String("vault", vaultID),
			slog.String("error", err.Error()))
	}
	return true
}
