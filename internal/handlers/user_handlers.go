package handlers

import (
	"context"
	"net/http"

	"threadview/internal/api"
	"threadview/internal/middleware"
	"threadview/internal/store"
	"threadview/internal/utils"
)

// HandleLogin loads the token's user with their data for this page and
// attaches it to the store.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			s.writeError(w, r, utils.NewUnauthorizedError("no user in token"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		user, err := s.DB.GetPageUser(ctx, s.PageID, userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.Engine.Dispatch(ctx, store.Login{User: user}); err != nil {
			s.writeError(w, r, err)
			return
		}

		s.logger.Info("user logged in", "user_id", userID, "unapproved_posts", len(user.UnapprovedPosts))
		s.writeJSON(w, http.StatusOK, api.LoginResponse{
			Success:  true,
			UserID:   user.UserID,
			Username: user.Username,
			IsStaff:  user.IsStaff(),
		})
	}
}

// HandleLogout resets the page to a guest. Only the logged-in user can.
func (s *Server) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		if _, err := s.requireStoreUser(ctx, r); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.Engine.Dispatch(ctx, store.Logout{}); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ActionResponse{Success: true, Kind: string(store.KindLogout)})
	}
}

// HandleReadProgress saves the posts the logged-in user read this session,
// so the next login starts with them as read long ago.
func (s *Server) HandleReadProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		userID, err := s.requireStoreUser(ctx, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		user, err := s.Engine.User(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.DB.SaveReadProgress(ctx, s.PageID, userID, user.PostIDsAutoReadNow); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.ReadProgressResponse{Success: true, Saved: len(user.PostIDsAutoReadNow)})
	}
}
