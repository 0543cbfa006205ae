package store

import "threadview/internal/models"

// Snapshots are deep copies; changing them never affects the store.

func (s *Store) AllData() *models.PageStore {
	return s.page.Clone()
}

func (s *Store) PageID() string {
	return s.page.PageID
}

func (s *Store) PageRole() models.PageRole {
	return s.page.PageRole
}

func (s *Store) User() *models.User {
	return s.page.User.Clone()
}

func (s *Store) Categories() []models.Category {
	return models.CloneCategories(s.page.Categories)
}

func (s *Store) IsGuestLoginAllowed() bool {
	return s.page.GuestLoginAllowed
}
