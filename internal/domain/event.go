package domain

import "context"

// Event is a domain event handed to an EventNotifier.
type Event interface {
	EventName() string
}

// EventNotifier delivers events to subscribers on a best-effort basis.
// Dispatch never reports failure to the caller; implementations log instead.
type EventNotifier interface {
	Dispatch(ctx context.Context, event Event)
}

// UserRegistered carries the login result for in-process subscribers. The
// token is never serialized.
type UserRegistered struct {
	User  UserView  `json:"user"`
	Login UserLogin `json:"-"`
}

func (UserRegistered) EventName() string { return "user.registered" }

type UserLoggedIn struct {
	User  UserView  `json:"user"`
	Login UserLogin `json:"-"`
}

func (UserLoggedIn) EventName() string { return "user.logged_in" }

type UserUpdated struct {
	User UserView `json:"user"`
}

func (UserUpdated) EventName() string { return "user.updated" }

// VoteChanged reports a vote transition. A zero direction means "no vote".
type VoteChanged struct {
	UserID   int64         `json:"userId"`
	Kind     VotableKind   `json:"kind"`
	EntityID int64         `json:"entityId"`
	OwnerID  int64         `json:"ownerId"`
	Previous VoteDirection `json:"previous"`
	Current  VoteDirection `json:"current"`
}

func (VoteChanged) EventName() string { return "vote.changed" }
