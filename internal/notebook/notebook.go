// Package notebook owns the journal entries: creation with auto-tagging,
// manual tag edits, deletion, filtered search and weekly trends.
package notebook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbaille/melune/internal/classifier"
	"github.com/pbaille/melune/internal/domain"
	"github.com/pbaille/melune/internal/logging"
)

const maxLoggedContent = 80

// Repository persists the whole notebook document
type Repository interface {
	LoadNotebook(ctx context.Context) (*domain.NotebookDocument, error)
	SaveNotebook(ctx context.Context, doc *domain.NotebookDocument) error
}

// Notebook is the in-memory entry list backed by a Repository.
// Entries are kept most-recent-first.
type Notebook struct {
	mu            sync.RWMutex
	repo          Repository
	logger        *zap.Logger
	now           func() time.Time
	newID         func() (string, error)
	entries       []domain.NotebookEntry
	availableTags []string

	listenersMu sync.Mutex
	listeners   map[int]func([]domain.NotebookEntry)
	nextID      int
}

// Option configures a Notebook
type Option func(*Notebook)

// WithClock overrides the time source used for timestamps and trend windows
func WithClock(now func() time.Time) Option {
	return func(n *Notebook) { n.now = now }
}

// WithIDGenerator overrides entry id generation
func WithIDGenerator(gen func() (string, error)) Option {
	return func(n *Notebook) { n.newID = gen }
}

// New creates an empty Notebook. Call Load to read persisted entries.
func New(repo Repository, logger *zap.Logger, opts ...Option) *Notebook {
	n := &Notebook{
		repo:          repo,
		logger:        logger,
		now:           time.Now,
		newID:         newEntryID,
		availableTags: append([]string(nil), classifier.DefaultTags...),
		listeners:     make(map[int]func([]domain.NotebookEntry)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func newEntryID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load replaces the in-memory state with the persisted document
func (n *Notebook) Load(ctx context.Context) error {
	doc, err := n.repo.LoadNotebook(ctx)
	if err != nil {
		return fmt.Errorf("load notebook: %w", err)
	}

	n.mu.Lock()
	n.entries = doc.Entries
	if len(doc.AvailableTags) > 0 {
		n.availableTags = doc.AvailableTags
	}
	count := len(n.entries)
	n.mu.Unlock()

	n.logger.Debug("Loaded notebook", zap.Int("entries", count))
	return nil
}

// AddEntry creates an entry, computes its auto tags and prepends it.
// An empty type defaults to personal.
func (n *Notebook) AddEntry(ctx context.Context, content string, entryType domain.EntryType, meta domain.EntryMetadata) (string, error) {
	if entryType == "" {
		entryType = domain.EntryPersonal
	}

	id, err := n.newID()
	if err != nil {
		return "", fmt.Errorf("generate entry id: %w", err)
	}

	entry := domain.NotebookEntry{
		ID:        id,
		Content:   content,
		Type:      entryType,
		Metadata:  meta,
		AutoTags:  classifier.GenerateAutoTags(content, entryType, meta),
		Timestamp: n.now().UnixMilli(),
	}
	entry = entry.Clone()

	err = n.commit(ctx, func(entries []domain.NotebookEntry) []domain.NotebookEntry {
		return append([]domain.NotebookEntry{entry}, entries...)
	})
	if err != nil {
		return "", err
	}

	n.logger.Info("Added notebook entry",
		zap.String("entry_id", id),
		zap.String("type", string(entryType)),
		zap.String("content", logging.TruncateString(content, maxLoggedContent)),
		zap.Strings("auto_tags", entry.AutoTags),
	)
	return id, nil
}

// DeleteEntry removes an entry. Unknown ids are a no-op.
func (n *Notebook) DeleteEntry(ctx context.Context, id string) error {
	return n.commit(ctx, func(entries []domain.NotebookEntry) []domain.NotebookEntry {
		i := indexOf(entries, id)
		if i < 0 {
			return nil
		}
		out := make([]domain.NotebookEntry, 0, len(entries)-1)
		out = append(out, entries[:i]...)
		return append(out, entries[i+1:]...)
	})
}

// AddTagToEntry appends a manual tag. Duplicates are kept.
func (n *Notebook) AddTagToEntry(ctx context.Context, id, tag string) error {
	return n.updateTags(ctx, id, func(tags []string) []string {
		return append(tags, tag)
	})
}

// RemoveTagFromEntry removes the first occurrence of a manual tag
func (n *Notebook) RemoveTagFromEntry(ctx context.Context, id, tag string) error {
	return n.updateTags(ctx, id, func(tags []string) []string {
		for i, t := range tags {
			if t == tag {
				return append(tags[:i], tags[i+1:]...)
			}
		}
		return tags
	})
}

func (n *Notebook) updateTags(ctx context.Context, id string, fn func([]string) []string) error {
	return n.commit(ctx, func(entries []domain.NotebookEntry) []domain.NotebookEntry {
		i := indexOf(entries, id)
		if i < 0 {
			return nil
		}
		out := append([]domain.NotebookEntry(nil), entries...)
		updated := out[i].Clone()
		updated.Metadata.Tags = fn(updated.Metadata.Tags)
		out[i] = updated
		return out
	})
}

// commit builds the next entry list, persists it and only then swaps it in.
// A nil result from fn means nothing changed.
func (n *Notebook) commit(ctx context.Context, fn func([]domain.NotebookEntry) []domain.NotebookEntry) error {
	n.mu.Lock()
	next := fn(n.entries)
	if next == nil {
		n.mu.Unlock()
		return nil
	}

	doc := &domain.NotebookDocument{Entries: next, AvailableTags: n.availableTags}
	if err := n.repo.SaveNotebook(ctx, doc); err != nil {
		n.mu.Unlock()
		n.logger.Error("Failed to persist notebook", zap.Error(err))
		return fmt.Errorf("save notebook: %w", err)
	}
	n.entries = next
	snapshot := cloneEntries(next)
	n.mu.Unlock()

	n.notify(snapshot)
	return nil
}

// Subscribe registers fn to receive the entry list after every committed change
func (n *Notebook) Subscribe(fn func([]domain.NotebookEntry)) (unsubscribe func()) {
	n.listenersMu.Lock()
	defer n.listenersMu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.listenersMu.Lock()
		defer n.listenersMu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *Notebook) notify(entries []domain.NotebookEntry) {
	n.listenersMu.Lock()
	fns := make([]func([]domain.NotebookEntry), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.listenersMu.Unlock()

	for _, fn := range fns {
		fn(entries)
	}
}

// Entries returns a copy of all entries, most recent first
func (n *Notebook) Entries() []domain.NotebookEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return cloneEntries(n.entries)
}

// Entry looks up a single entry by id
func (n *Notebook) Entry(id string) (domain.NotebookEntry, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	i := indexOf(n.entries, id)
	if i < 0 {
		return domain.NotebookEntry{}, false
	}
	return n.entries[i].Clone(), true
}

// AvailableTags returns the predefined tag vocabulary
func (n *Notebook) AvailableTags() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]string(nil), n.availableTags...)
}

// SuggestedTags proposes vocabulary tags for a draft entry
func (n *Notebook) SuggestedTags(content string) []string {
	return classifier.SuggestedTags(content, n.AvailableTags())
}

func indexOf(entries []domain.NotebookEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneEntries(entries []domain.NotebookEntry) []domain.NotebookEntry {
	out := make([]domain.NotebookEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
