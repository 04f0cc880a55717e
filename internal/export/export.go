// internal/export/export.go

// Package export writes received messages to per-day txt files.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eventhub-tools/ehreader/internal/model"
	"github.com/eventhub-tools/ehreader/internal/storage"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

const (
	timestampLayout = "2006-01-02T15-04-05.000"
	bodyLayout      = "2006-01-02T15:04:05.000000000Z"
)

// Exporter writes one txt file per exported message under
// <basePath>/<YYYY-MM-DD>/. Export is called from the hot path, so failures
// are returned to the caller rather than swallowed: a broken export target
// must stop the partition, not silently drop files.
type Exporter struct {
	basePath    string
	contentOnly bool
	log         *logger.Logger
}

// New creates an exporter rooted at <baseDataFolder>/<receivedMsgPath>.
// With contentOnly set, only the raw message body is written.
func New(baseDataFolder, receivedMsgPath string, contentOnly bool, log *logger.Logger) *Exporter {
	return &Exporter{
		basePath:    filepath.Join(baseDataFolder, receivedMsgPath),
		contentOnly: contentOnly,
		log:         log.Named("export"),
	}
}

// Prepare verifies the export target is usable before any message arrives:
// it creates the base directory and round-trips a probe file.
func (e *Exporter) Prepare() error {
	if err := os.MkdirAll(e.basePath, 0o755); err != nil {
		return fmt.Errorf("export: create base dir %s: %w", e.basePath, err)
	}
	probe := filepath.Join(e.basePath, ".write_check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("export: target not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("export: remove probe file: %w", err)
	}
	return nil
}

// Export writes msg to <basePath>/<YYYY-MM-DD>/<timestamp>--<offset>.txt.
func (e *Exporter) Export(msg *model.InboundMessage) error {
	datePath := filepath.Join(e.basePath, msg.ProcessedAt.Format("2006-01-02"))
	if err := os.MkdirAll(datePath, 0o755); err != nil {
		return fmt.Errorf("export: create date dir %s: %w", datePath, err)
	}

	offset := msg.EventOffset
	if offset == "" {
		offset = "unknown"
	}
	filename := fmt.Sprintf("%s--%s.txt",
		msg.ProcessedAt.Format(timestampLayout),
		storage.SanitizeForFilename(offset))
	path := filepath.Join(datePath, filename)

	content := msg.MsgData
	if !e.contentOnly {
		content = formatFullMessage(msg)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}

	e.log.Debug("exported message", zap.String("event_id", msg.EventID), zap.String("path", path))
	return nil
}

func formatFullMessage(msg *model.InboundMessage) string {
	var seq int64
	if msg.EventSeqNumber != nil {
		seq = *msg.EventSeqNumber
	}
	return fmt.Sprintf(`---| DETAILS      |----------------------------------------------------------
id: %s
partition key: %s
added to queue at: %s
partition id: %s
event sequence number: %d
event offset: %s
Message processed at: %s
Filename: %s

---| MESSAGE BODY |----------------------------------------------------------
%s
---|          EOF |----------------------------------------------------------
`,
		msg.EventID,
		msg.PartitionKey,
		msg.QueuedTime.UTC().Format(bodyLayout),
		msg.PartitionID,
		seq,
		msg.EventOffset,
		msg.ProcessedAt.UTC().Format(bodyLayout),
		msg.SuggestedFilename,
		msg.MsgData,
	)
}
