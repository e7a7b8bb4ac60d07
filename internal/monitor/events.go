package monitor

import (
	"encoding/json"
	"time"
)

// OperationCommitted implements engine.Events. It updates the counters and
// broadcasts a commit message.
func (s *Server) OperationCommitted(spaceID string, deleted, inserted int, syncPending bool) {
	s.statsMu.Lock()
	s.stats.Operations++
	s.stats.QuadsDeleted += deleted
	s.stats.QuadsAdded += inserted
	s.statsMu.Unlock()

	s.broadcastData(MessageTypeCommit, CommitData{
		SpaceID:     spaceID,
		Deleted:     deleted,
		Inserted:    inserted,
		SyncPending: syncPending,
	})
}

// SyncFailed implements engine.Events.
func (s *Server) SyncFailed(spaceID string, err error) {
	s.statsMu.Lock()
	s.stats.SyncFailures++
	s.statsMu.Unlock()

	s.broadcastData(MessageTypeSyncFailure, SyncFailureData{
		SpaceID: spaceID,
		Error:   err.Error(),
	})
}

// ConsistencyChecked implements engine.Events.
func (s *Server) ConsistencyChecked(spaceID string, clean bool) {
	s.broadcastData(MessageTypeConsistency, ConsistencyData{
		SpaceID: spaceID,
		Clean:   clean,
	})
}

func (s *Server) broadcastData(typ MessageType, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	s.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      payload,
	})
}
