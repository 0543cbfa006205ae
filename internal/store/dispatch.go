package store

import (
	"fmt"
	"slices"
	"time"

	"threadview/internal/models"
	"threadview/internal/utils"
)

// Dispatch applies one action, then notifies every change listener once and
// resets quickUpdate for the next action. An action no handler knows is
// logged and dropped without notifying; Dispatch still returns nil for it.
// The only error is calling Dispatch from inside a Dispatch, e.g. from a
// change listener; the state is left untouched.
func (s *Store) Dispatch(action Action) error {
	if s.dispatching {
		err := utils.NewAppError(utils.ErrDispatchInProgress,
			fmt.Sprintf("cannot dispatch %T while another action is being applied", action), nil)
		s.logger.Error("re-entrant dispatch", "action", fmt.Sprintf("%T", action))
		return err
	}
	s.dispatching = true
	defer func() { s.dispatching = false }()

	startTime := time.Now()
	if !s.apply(action) {
		s.metrics.RecordUnknownAction()
		return nil
	}
	s.metrics.RecordAction(string(action.Kind()), time.Since(startTime))

	s.emitChange()
	s.page.QuickUpdate = false
	return nil
}

// apply runs the handler for action and reports whether one matched.
func (s *Store) apply(action Action) bool {
	page := s.page
	switch a := action.(type) {
	case Login:
		s.login(a.User)

	case Logout:
		s.logout()

	case NewUserAccountCreated:
		page.NewUserAccountCreated = true

	case CreateForumCategory:
		page.Categories = models.CloneCategories(a.AllCategories)
		page.NewCategoryID = a.NewCategoryID
		page.NewCategorySlug = a.NewCategorySlug

	case PinPage:
		page.PinOrder = a.PinOrder
		page.PinWhere = a.PinWhere

	case UnpinPage:
		page.PinOrder = 0
		page.PinWhere = 0

	case SetPageNotfLevel:
		page.User.RolePageSettings.NotfLevel = a.NewLevel

	case TogglePageIsDone:
		page.PageDoneAtMs = copyMillis(a.DoneAtMs)

	case TogglePageClosed:
		page.PageClosedAtMs = copyMillis(a.ClosedAtMs)

	case EditTitleAndSettings:
		s.editTitleAndSettings(a)

	case UpdatePost:
		if a.Post == nil {
			s.logger.Warn("update without a post ignored")
			break
		}
		s.updatePost(a.Post, false)

	case VoteOnPost:
		if a.Post == nil {
			s.logger.Warn("vote without a post ignored")
			break
		}
		s.voteOnPost(a)

	case MarkPostAsRead:
		s.markPostAsRead(a.PostID, a.Manually)

	case CycleToNextMark:
		s.cycleToNextMark(a.PostID)

	case SummarizeReplies:
		s.summarizeReplies()

	case UnsquashTrees:
		s.unsquashTrees(a.PostID)

	case CollapseTree:
		if a.Post == nil {
			s.logger.Warn("collapse without a post ignored")
			break
		}
		s.collapseTree(a.Post.PostID)

	case UncollapsePost:
		if a.Post == nil {
			s.logger.Warn("uncollapse without a post ignored")
			break
		}
		s.uncollapsePost(a.Post.PostID)

	case SetHorizontalLayout:
		page.HorizontalLayout = a.Enabled
		// The whole page re-renders, recreating every gif.
		s.ui.RestartGifs()

	case ChangeSiteStatus:
		page.SiteStatus = a.NewStatus

	case UnknownAction:
		s.logger.Warn("unknown action", "action", a.ActionType, "payload", string(a.Payload))
		return false

	default:
		s.logger.Warn("unknown action", "action", fmt.Sprintf("%T", action))
		return false
	}
	return true
}

// login merges user-specific data into a page that was first built from
// data shared by all visitors.
func (s *Store) login(user *models.User) {
	page := s.page
	page.UserSpecificDataAdded = true
	s.refreshNow()

	if user != nil {
		page.User = user.Clone()
		page.User.EnsureMaps()
		s.ui.SetStaffClasses(page.User.IsStaff())

		// Show the user's own unapproved posts (all of them, for staff).
		unapproved := page.User.UnapprovedPosts
		for _, id := range sortedPostIDs(unapproved) {
			if post := unapproved[id]; post != nil {
				s.updatePost(post, false)
			}
		}
	}
	page.QuickUpdate = false
}

func (s *Store) logout() {
	page := s.page
	if page.UserMustBeAuthenticated || page.UserMustBeApproved {
		s.ui.ReloadPage()
	}
	s.ui.SetStaffClasses(false)
	page.User = models.NewGuestUser()
}

func (s *Store) editTitleAndSettings(a EditTitleAndSettings) {
	page := s.page
	page.AncestorsRootFirst = append([]models.Ancestor(nil), a.NewAncestorsRootFirst...)
	if n := len(a.NewAncestorsRootFirst); n > 0 {
		page.ParentPageID = a.NewAncestorsRootFirst[n-1].PageID
	} else {
		page.ParentPageID = ""
	}

	wasHorizontal := page.HorizontalLayout
	if a.NewPageRole != 0 {
		page.PageRole = a.NewPageRole
	}
	page.HorizontalLayout = a.NewPageRole == models.PageRoleMindMap || page.Is2dTreeDefault

	if a.NewTitlePost != nil {
		s.updatePost(a.NewTitlePost, false)
	}
	if wasHorizontal != page.HorizontalLayout {
		page.QuickUpdate = false
		s.ui.LayoutChanged(page.HorizontalLayout)
	}
}

func (s *Store) voteOnPost(a VoteOnPost) {
	votes := s.page.User.Votes
	postID := a.Post.PostID
	if a.DoWhat == models.CreateVote {
		votes[postID] = append(votes[postID], a.VoteType)
	} else {
		votes[postID] = slices.DeleteFunc(votes[postID], func(v models.VoteType) bool {
			return v == a.VoteType
		})
	}
	s.updatePost(a.Post, false)
}

func copyMillis(ms *int64) *int64 {
	if ms == nil {
		return nil
	}
	v := *ms
	return &v
}
