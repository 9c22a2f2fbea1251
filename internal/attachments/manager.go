package attachments

import (
	"context"

	"github.com/google/uuid"

	"github.com/tomerlevy/claimdesk/pkg/logging"
)

// uploader is the storage surface the manager needs.
type uploader interface {
	Upload(ctx context.Context, sessionID uuid.UUID, name, contentType string, data []byte) (*Attachment, error)
}

// File is one pending upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Manager uploads evidence files one at a time. A failed upload is dropped
// from the resulting list; the batch never fails as a whole.
type Manager struct {
	store  uploader
	logger *logging.Logger
}

// NewManager creates an attachment manager.
func NewManager(store uploader, logger *logging.Logger) *Manager {
	if store == nil {
		panic("attachments: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{store: store, logger: logger}
}

// UploadBatch uploads files sequentially, one in flight at a time, and
// returns the attachments that made it.
func (m *Manager) UploadBatch(ctx context.Context, sessionID uuid.UUID, files []File) []Attachment {
	out := make([]Attachment, 0, len(files))
	for _, f := range files {
		att, err := m.store.Upload(ctx, sessionID, f.Name, f.ContentType, f.Data)
		if err != nil {
			m.logger.Warn("attachment upload failed, dropping from batch",
				"error", err, "session_id", sessionID, "file_name", f.Name)
			continue
		}
		out = append(out, *att)
	}
	return out
}
