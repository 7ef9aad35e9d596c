package sink

import (
	"fmt"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/fileutils"
	"hhn/ledger-bridge/internal/models"

	"gopkg.in/yaml.v3"
)

// WriteSnapshot persists snapshot as YAML at path, replacing any existing
// file.
func WriteSnapshot(path string, snapshot models.Snapshot) error {
	if snapshot.Version == 0 {
		snapshot.Version = models.SnapshotVersion
	}
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return &etlerror.LoadError{Sink: "snapshot", Err: fmt.Errorf("failed to marshal snapshot: %w", err)}
	}
	if err := fileutils.WriteFileAtomic(path, data, 0600); err != nil {
		return &etlerror.LoadError{Sink: "snapshot", Err: err}
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot. The batch's
// distinct customers and items are recomputed from its invoices.
func ReadSnapshot(path string) (models.Snapshot, error) {
	data, err := fileutils.ReadFile(path)
	if err != nil {
		return models.Snapshot{}, &etlerror.ExtractionError{Source: path, Reason: "unable to read snapshot", Err: err}
	}

	var snapshot models.Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return models.Snapshot{}, &etlerror.ExtractionError{Source: path, Reason: "invalid snapshot", Err: err}
	}
	if snapshot.Version != models.SnapshotVersion {
		return models.Snapshot{}, &etlerror.ExtractionError{
			Source: path,
			Reason: fmt.Sprintf("unsupported snapshot version %d", snapshot.Version),
		}
	}
	snapshot.Batch = models.NewInvoiceBatch(snapshot.Batch.Invoices)
	return snapshot, nil
}
