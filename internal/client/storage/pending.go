package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/models"
)

// PendingKey is the storage key of the pending task buffer.
const PendingKey = "pending_todos"

const pendingSchemaURL = "pending_todos.schema.json"

const pendingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["title", "timestamp"],
    "properties": {
      "title": {"type": "string"},
      "description": {"type": "string"},
      "timestamp": {"type": "integer"}
    }
  }
}`

var pendingValidator = jsonschema.MustCompileString(pendingSchemaURL, pendingSchema)

// PendingBuffer queues tasks drafted before authentication. Entries are
// keyed by their millisecond timestamp; two entries added in the same
// millisecond share a key and are removed together.
type PendingBuffer struct {
	ls  *LocalStorage
	log *zap.Logger
	now func() time.Time
}

// NewPendingBuffer returns a buffer backed by ls.
func NewPendingBuffer(ls *LocalStorage) *PendingBuffer {
	return &PendingBuffer{ls: ls, log: ls.log, now: time.Now}
}

// Add appends a pending task stamped with the current time and persists
// the buffer.
func (b *PendingBuffer) Add(title, description string) (models.PendingTask, error) {
	p := models.PendingTask{
		Title:       title,
		Description: description,
		Timestamp:   b.now().UnixMilli(),
	}
	items := append(b.List(), p)
	if err := b.write(items); err != nil {
		return models.PendingTask{}, err
	}
	return p, nil
}

// List returns the buffered tasks in insertion order. Missing or corrupt
// data yields an empty slice; corruption is logged, not returned.
func (b *PendingBuffer) List() []models.PendingTask {
	raw, ok := b.ls.GetItem(PendingKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return []models.PendingTask{}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		b.log.Error("pending tasks are not valid JSON", zap.Error(err))
		return []models.PendingTask{}
	}
	if err := pendingValidator.Validate(doc); err != nil {
		b.log.Error("pending tasks do not match schema", zap.Error(err))
		return []models.PendingTask{}
	}

	var items []models.PendingTask
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		b.log.Error("failed to decode pending tasks", zap.Error(err))
		return []models.PendingTask{}
	}
	return items
}

// RemoveByTimestamp drops every entry with the given timestamp and
// persists the rest.
func (b *PendingBuffer) RemoveByTimestamp(ts int64) error {
	items := b.List()
	kept := items[:0]
	for _, p := range items {
		if p.Timestamp != ts {
			kept = append(kept, p)
		}
	}
	return b.write(kept)
}

// Clear erases the buffer.
func (b *PendingBuffer) Clear() error {
	return b.ls.RemoveItem(PendingKey)
}

func (b *PendingBuffer) write(items []models.PendingTask) error {
	if items == nil {
		items = []models.PendingTask{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode pending tasks: %w", err)
	}
	return b.ls.SetItem(PendingKey, string(data))
}
