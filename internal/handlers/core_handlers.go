package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"threadview/internal/api"
	"threadview/internal/middleware"
	"threadview/internal/store"
	"threadview/internal/utils"
)

// HandleHealth reports post counts, connected viewers and dispatch totals.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		counts, err := s.Engine.Counts(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		snapshot := s.Metrics.Snapshot()
		s.writeJSON(w, http.StatusOK, api.HealthResponse{
			Status:  "healthy",
			PageID:  s.PageID,
			Counts:  *counts,
			Viewers: s.Hub.NumViewers(),
			Actions: snapshot.Actions,
			Errors:  snapshot.Errors,
			Uptime:  snapshot.Uptime.Round(time.Second).String(),
		})
	}
}

// HandlePage returns the full page snapshot.
func (s *Server) HandlePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		page, err := s.Engine.Snapshot(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, page)
	}
}

// HandleActions decodes one action envelope and dispatches it. Posts and
// votes need the token of the user logged in on the page and are saved
// before the store sees them.
// Login and Logout have their own endpoints.
func (s *Server) HandleActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, r, utils.NewAppError(utils.ErrInvalidInput, "failed to read request body", err))
			return
		}
		action, err := store.DecodeAction(body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
		defer cancel()

		switch a := action.(type) {
		case store.Login, store.Logout:
			s.writeError(w, r, utils.NewAppError(utils.ErrInvalidInput,
				"use /login or /logout for "+string(action.Kind()), nil))
			return

		case store.UpdatePost:
			userID, err := s.requireStoreUser(ctx, r)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if a.Post.AuthorID == 0 {
				a.Post.AuthorID = userID
			}
			if err := s.DB.SavePost(ctx, s.PageID, a.Post); err != nil {
				s.writeError(w, r, err)
				return
			}

		case store.VoteOnPost:
			userID, err := s.requireStoreUser(ctx, r)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			if err := s.DB.SaveVote(ctx, s.PageID, userID, a.Post.PostID, a.VoteType, a.DoWhat); err != nil {
				s.writeError(w, r, err)
				return
			}
			if err := s.DB.SavePost(ctx, s.PageID, a.Post); err != nil {
				s.writeError(w, r, err)
				return
			}
		}

		if err := s.Engine.Dispatch(ctx, action); err != nil {
			s.writeError(w, r, err)
			return
		}

		_, ignored := action.(store.UnknownAction)
		s.writeJSON(w, http.StatusOK, api.ActionResponse{
			Success: true,
			Kind:    string(action.Kind()),
			Ignored: ignored,
		})
	}
}

// requireUser returns the user behind the request's bearer token and fails
// for guests.
func (s *Server) requireUser(r *http.Request) (int, error) {
	if userID, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		return userID, nil
	}
	userID, err := s.Auth.Optional(r)
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, utils.NewUnauthorizedError("log in to post or vote")
	}
	return userID, nil
}

// requireStoreUser is requireUser plus a check that the token's user is the
// one logged in on the page, since the store applies votes and marks to
// that user.
func (s *Server) requireStoreUser(ctx context.Context, r *http.Request) (int, error) {
	userID, err := s.requireUser(r)
	if err != nil {
		return 0, err
	}
	user, err := s.Engine.User(ctx)
	if err != nil {
		return 0, err
	}
	if user.UserID != userID {
		return 0, utils.NewUnauthorizedError("token user is not logged in on this page")
	}
	return userID, nil
}
