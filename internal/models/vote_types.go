package models

// VoteType is the kind of vote a user casts on a post.
type VoteType string

const (
	VoteLike     VoteType = "VoteLike"
	VoteWrong    VoteType = "VoteWrong"
	VoteBury     VoteType = "VoteBury"
	VoteUnwanted VoteType = "VoteUnwanted"
)

// VoteAction says whether a vote is being cast or taken back.
type VoteAction string

const (
	CreateVote VoteAction = "CreateVote"
	RemoveVote VoteAction = "RemoveVote"
)
