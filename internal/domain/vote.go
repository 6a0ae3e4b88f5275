package domain

import (
	"context"
	"fmt"
)

// VoteDirection is the signed value of a vote.
type VoteDirection int

const (
	VoteUp   VoteDirection = 1
	VoteDown VoteDirection = -1
)

// Valid reports whether d is Up or Down.
func (d VoteDirection) Valid() bool {
	return d == VoteUp || d == VoteDown
}

func (d VoteDirection) String() string {
	switch d {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return fmt.Sprintf("VoteDirection(%d)", int(d))
	}
}

// VotableKind tags which variant of content a votable entity is.
type VotableKind string

const (
	VotableComment VotableKind = "comment"
	VotablePost    VotableKind = "post"
)

// karmaFields maps each votable kind to the owner aggregate its votes feed.
var karmaFields = map[VotableKind]func(u *User) *int{
	VotableComment: func(u *User) *int { return &u.CommentKarma },
	VotablePost:    func(u *User) *int { return &u.PostKarma },
}

// VotableKinds returns every known votable kind.
func VotableKinds() []VotableKind {
	return []VotableKind{VotableComment, VotablePost}
}

// Valid reports whether k routes to an owner aggregate.
func (k VotableKind) Valid() bool {
	_, ok := karmaFields[k]
	return ok
}

// Vote is a single user's vote on one votable entity. A user holds at most
// one vote per entity.
type Vote struct {
	UserID    int64
	Kind      VotableKind
	EntityID  int64
	Direction VoteDirection
}

// VotableEntity is a comment or post that can receive votes.
//
// AddVote and RemoveVote keep the entity's tallies and the owner's karma in
// step. They perform no locking and no persistence: the caller must hold
// exclusive access to both the entity and its owner and save both.
type VotableEntity struct {
	ID        int64
	Kind      VotableKind
	Owner     *User
	Upvotes   int
	Downvotes int

	// Vote is the viewing user's vote, if any. View state only.
	Vote *Vote
}

// AddVote counts a vote in direction d.
func (e *VotableEntity) AddVote(d VoteDirection) error {
	counter, karma, err := e.targets(d)
	if err != nil {
		return err
	}
	*counter++
	*karma += int(d)
	return nil
}

// RemoveVote undoes a previous AddVote(d).
func (e *VotableEntity) RemoveVote(d VoteDirection) error {
	counter, karma, err := e.targets(d)
	if err != nil {
		return err
	}
	if *counter == 0 {
		return fmt.Errorf("%w: no %s vote to remove from %s %d", ErrInvalidVote, d, e.Kind, e.ID)
	}
	*counter--
	*karma -= int(d)
	return nil
}

// Score is upvotes minus downvotes.
func (e *VotableEntity) Score() int {
	return e.Upvotes - e.Downvotes
}

func (e *VotableEntity) targets(d VoteDirection) (counter, karma *int, err error) {
	field, ok := karmaFields[e.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown votable kind %q", ErrInvalidVote, e.Kind)
	}
	if e.Owner == nil {
		return nil, nil, fmt.Errorf("%w: %s %d has no owner", ErrInvalidVote, e.Kind, e.ID)
	}

	switch d {
	case VoteUp:
		counter = &e.Upvotes
	case VoteDown:
		counter = &e.Downvotes
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidVote, d)
	}
	return counter, field(e.Owner), nil
}

// VoteRepository loads and saves votable entities and vote records.
// GetVotable loads the owner alongside the entity.
type VoteRepository interface {
	GetVotable(ctx context.Context, kind VotableKind, id int64) (*VotableEntity, error)
	SaveTallies(ctx context.Context, entity *VotableEntity) error
	GetVote(ctx context.Context, userID int64, kind VotableKind, entityID int64) (*Vote, error)
	UpsertVote(ctx context.Context, vote *Vote) error
	DeleteVote(ctx context.Context, userID int64, kind VotableKind, entityID int64) error
	KarmaFromVotes(ctx context.Context, userID int64) (commentKarma, postKarma int, err error)
}
