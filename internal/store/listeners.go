package store

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"threadview/internal/models"
)

type listener struct {
	id       uuid.UUID
	callback func()
}

// AddChangeListener registers a callback run after every applied action.
// Callbacks run synchronously in registration order.
func (s *Store) AddChangeListener(callback func()) uuid.UUID {
	id := uuid.New()
	s.listeners = append(s.listeners, listener{id: id, callback: callback})
	return id
}

// RemoveChangeListener unregisters a callback. It reports whether the id was
// registered.
func (s *Store) RemoveChangeListener(id uuid.UUID) bool {
	n := len(s.listeners)
	s.listeners = slices.DeleteFunc(s.listeners, func(l listener) bool {
		return l.id == id
	})
	return len(s.listeners) != n
}

// emitChange runs every listener registered when it starts. A panicking
// listener is logged and the rest still run.
func (s *Store) emitChange() {
	for _, l := range slices.Clone(s.listeners) {
		s.notify(l)
	}
}

func (s *Store) notify(l listener) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordListenerPanic()
			s.logger.Error("change listener panicked",
				"listener_id", l.id,
				"error", fmt.Sprint(r))
		}
	}()
	l.callback()
}

// ChangeSet describes what the last applied action changed.
type ChangeSet struct {
	QuickUpdate   bool            `json:"quickUpdate"`
	PostsToUpdate []models.PostID `json:"postsToUpdate"`
	NumPosts      int             `json:"numPosts"`
}

// Changes returns the re-render hint for the action being notified. Read it
// from a listener; once Dispatch returns, quickUpdate is already reset.
func (s *Store) Changes() ChangeSet {
	ids := make([]models.PostID, 0, len(s.page.PostsToUpdate))
	for id, ok := range s.page.PostsToUpdate {
		if ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ChangeSet{
		QuickUpdate:   s.page.QuickUpdate,
		PostsToUpdate: ids,
		NumPosts:      s.page.NumPosts,
	}
}
