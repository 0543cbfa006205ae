package api

import "threadview/internal/engine"

type LoginResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	UserID   int    `json:"userId"`
	Username string `json:"username,omitempty"`
	IsStaff  bool   `json:"isStaff,omitempty"`
}

// ActionResponse answers POST /actions. Ignored is set for action kinds
// the store does not know.
type ActionResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Ignored bool   `json:"ignored,omitempty"`
}

type ReadProgressResponse struct {
	Success bool `json:"success"`
	Saved   int  `json:"saved"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	PageID  string        `json:"pageId"`
	Counts  engine.Counts `json:"counts"`
	Viewers int           `json:"viewers"`
	Actions uint64        `json:"actions"`
	Errors  uint64        `json:"errors"`
	Uptime  string        `json:"uptime"`
}
