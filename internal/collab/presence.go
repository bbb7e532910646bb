package collab

import (
	"log/slog"
	"sync"

	"github.com/inkboard/inkboard/internal/presence"
)

// PresenceManager keeps the last record each connection published. Colors are
// chosen by the clients; the server only relays.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]presence.Record // clientID -> record
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]presence.Record),
	}
}

func (pm *PresenceManager) Update(clientID string, r presence.Record) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = r
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]presence.Record {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]presence.Record, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	msg, err := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}
