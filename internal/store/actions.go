package store

import "threadview/internal/models"

// ActionKind names an action on the wire.
type ActionKind string

const (
	KindLogin                 ActionKind = "Login"
	KindLogout                ActionKind = "Logout"
	KindNewUserAccountCreated ActionKind = "NewUserAccountCreated"
	KindCreateForumCategory   ActionKind = "CreateForumCategory"
	KindPinPage               ActionKind = "PinPage"
	KindUnpinPage             ActionKind = "UnpinPage"
	KindSetPageNotfLevel      ActionKind = "SetPageNotfLevel"
	KindTogglePageIsDone      ActionKind = "TogglePageIsDone"
	KindTogglePageClosed      ActionKind = "TogglePageClosed"
	KindEditTitleAndSettings  ActionKind = "EditTitleAndSettings"
	KindUpdatePost            ActionKind = "UpdatePost"
	KindVoteOnPost            ActionKind = "VoteOnPost"
	KindMarkPostAsRead        ActionKind = "MarkPostAsRead"
	KindCycleToNextMark       ActionKind = "CycleToNextMark"
	KindSummarizeReplies      ActionKind = "SummarizeReplies"
	KindUnsquashTrees         ActionKind = "UnsquashTrees"
	KindCollapseTree          ActionKind = "CollapseTree"
	KindUncollapsePost        ActionKind = "UncollapsePost"
	KindSetHorizontalLayout   ActionKind = "SetHorizontalLayout"
	KindChangeSiteStatus      ActionKind = "ChangeSiteStatus"
)

// Action is one mutation request. The set is closed: only types in this
// package implement it.
type Action interface {
	Kind() ActionKind
	isAction()
}

type (
	// Login attaches user-specific data. A nil User keeps the current user
	// and only marks the page as personalized.
	Login struct {
		User *models.User `json:"user"`
	}

	Logout struct{}

	NewUserAccountCreated struct{}

	CreateForumCategory struct {
		AllCategories   []models.Category `json:"allCategories"`
		NewCategoryID   int               `json:"newCategoryId"`
		NewCategorySlug string            `json:"newCategorySlug"`
	}

	PinPage struct {
		PinOrder int             `json:"pinOrder"`
		PinWhere models.PinWhere `json:"pinWhere"`
	}

	UnpinPage struct{}

	SetPageNotfLevel struct {
		NewLevel models.NotfLevel `json:"newLevel"`
	}

	// TogglePageIsDone sets or, with a nil DoneAtMs, clears the done time.
	TogglePageIsDone struct {
		DoneAtMs *int64 `json:"doneAtMs"`
	}

	TogglePageClosed struct {
		ClosedAtMs *int64 `json:"closedAtMs"`
	}

	// EditTitleAndSettings follows a title or page settings edit. A zero
	// NewPageRole leaves the role unchanged.
	EditTitleAndSettings struct {
		NewTitlePost          *models.Post      `json:"newTitlePost"`
		NewAncestorsRootFirst []models.Ancestor `json:"newAncestorsRootFirst"`
		NewPageRole           models.PageRole   `json:"newPageRole"`
	}

	UpdatePost struct {
		Post *models.Post `json:"post"`
	}

	VoteOnPost struct {
		Post     *models.Post      `json:"post"`
		DoWhat   models.VoteAction `json:"doWhat"`
		VoteType models.VoteType   `json:"voteType"`
	}

	MarkPostAsRead struct {
		PostID   models.PostID `json:"postId"`
		Manually bool          `json:"manually"`
	}

	CycleToNextMark struct {
		PostID models.PostID `json:"postId"`
	}

	SummarizeReplies struct{}

	UnsquashTrees struct {
		PostID models.PostID `json:"postId"`
	}

	CollapseTree struct {
		Post *models.Post `json:"post"`
	}

	UncollapsePost struct {
		Post *models.Post `json:"post"`
	}

	SetHorizontalLayout struct {
		Enabled bool `json:"enabled"`
	}

	ChangeSiteStatus struct {
		NewStatus models.SiteStatus `json:"newStatus"`
	}

	// UnknownAction carries input whose kind no handler knows. Dispatch logs
	// it and otherwise ignores it.
	UnknownAction struct {
		ActionType string
		Payload    []byte
	}
)

func (Login) Kind() ActionKind                 { return KindLogin }
func (Logout) Kind() ActionKind                { return KindLogout }
func (NewUserAccountCreated) Kind() ActionKind { return KindNewUserAccountCreated }
func (CreateForumCategory) Kind() ActionKind   { return KindCreateForumCategory }
func (PinPage) Kind() ActionKind               { return KindPinPage }
func (UnpinPage) Kind() ActionKind             { return KindUnpinPage }
func (SetPageNotfLevel) Kind() ActionKind      { return KindSetPageNotfLevel }
func (TogglePageIsDone) Kind() ActionKind      { return KindTogglePageIsDone }
func (TogglePageClosed) Kind() ActionKind      { return KindTogglePageClosed }
func (EditTitleAndSettings) Kind() ActionKind  { return KindEditTitleAndSettings }
func (UpdatePost) Kind() ActionKind            { return KindUpdatePost }
func (VoteOnPost) Kind() ActionKind            { return KindVoteOnPost }
func (MarkPostAsRead) Kind() ActionKind        { return KindMarkPostAsRead }
func (CycleToNextMark) Kind() ActionKind       { return KindCycleToNextMark }
func (SummarizeReplies) Kind() ActionKind      { return KindSummarizeReplies }
func (UnsquashTrees) Kind() ActionKind         { return KindUnsquashTrees }
func (CollapseTree) Kind() ActionKind          { return KindCollapseTree }
func (UncollapsePost) Kind() ActionKind        { return KindUncollapsePost }
func (SetHorizontalLayout) Kind() ActionKind   { return KindSetHorizontalLayout }
func (ChangeSiteStatus) Kind() ActionKind      { return KindChangeSiteStatus }
func (a UnknownAction) Kind() ActionKind       { return ActionKind(a.ActionType) }

func (Login) isAction()                 {}
func (Logout) isAction()                {}
func (NewUserAccountCreated) isAction() {}
func (CreateForumCategory) isAction()   {}
func (PinPage) isAction()               {}
func (UnpinPage) isAction()             {}
func (SetPageNotfLevel) isAction()      {}
func (TogglePageIsDone) isAction()      {}
func (TogglePageClosed) isAction()      {}
func (EditTitleAndSettings) isAction()  {}
func (UpdatePost) isAction()            {}
func (VoteOnPost) isAction()            {}
func (MarkPostAsRead) isAction()        {}
func (CycleToNextMark) isAction()       {}
func (SummarizeReplies) isAction()      {}
func (UnsquashTrees) isAction()         {}
func (CollapseTree) isAction()          {}
func (UncollapsePost) isAction()        {}
func (SetHorizontalLayout) isAction()   {}
func (ChangeSiteStatus) isAction()      {}
func (UnknownAction) isAction()         {}
