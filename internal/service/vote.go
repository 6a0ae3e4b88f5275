package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/msomdec/updog/internal/domain"
)

// VoteService records votes on comments and posts. Each change updates the
// vote row, the entity's tallies and the owner's karma in one transaction.
type VoteService struct {
	tx     domain.Transactor
	votes  domain.VoteRepository
	events domain.EventNotifier
}

// NewVoteService creates a new VoteService.
func NewVoteService(tx domain.Transactor, votes domain.VoteRepository, events domain.EventNotifier) *VoteService {
	return &VoteService{tx: tx, votes: votes, events: events}
}

// Vote sets userID's vote on the entity to dir. Voting the same direction
// twice is a no-op. Switching direction removes the old vote before adding
// the new one.
func (s *VoteService) Vote(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64, dir domain.VoteDirection) (*domain.VotableEntity, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction %s", domain.ErrInvalidVote, dir)
	}
	return s.change(ctx, userID, kind, entityID, dir)
}

// Unvote removes userID's vote on the entity, if any.
func (s *VoteService) Unvote(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64) (*domain.VotableEntity, error) {
	return s.change(ctx, userID, kind, entityID, 0)
}

// Get returns the entity with viewerID's vote attached. A zero viewerID
// means an anonymous viewer.
func (s *VoteService) Get(ctx context.Context, viewerID int64, kind domain.VotableKind, entityID int64) (*domain.VotableEntity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown votable kind %q", domain.ErrInvalidVote, kind)
	}

	entity, err := s.votes.GetVotable(ctx, kind, entityID)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	if viewerID == 0 {
		return entity, nil
	}

	vote, err := s.currentVote(ctx, viewerID, kind, entityID)
	if err != nil {
		return nil, err
	}
	entity.Vote = vote
	return entity, nil
}

// change moves userID's vote on the entity to next, where zero means no vote.
func (s *VoteService) change(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64, next domain.VoteDirection) (*domain.VotableEntity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown votable kind %q", domain.ErrInvalidVote, kind)
	}

	var (
		entity   *domain.VotableEntity
		previous domain.VoteDirection
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		entity, err = s.votes.GetVotable(ctx, kind, entityID)
		if err != nil {
			return fmt.Errorf("get %s: %w", kind, err)
		}

		existing, err := s.currentVote(ctx, userID, kind, entityID)
		if err != nil {
			return err
		}
		if existing != nil {
			previous = existing.Direction
		}
		if previous == next {
			entity.Vote = existing
			return nil
		}

		if previous != 0 {
			if err := entity.RemoveVote(previous); err != nil {
				return err
			}
		}

		if next == 0 {
			if err := s.votes.DeleteVote(ctx, userID, kind, entityID); err != nil {
				return fmt.Errorf("delete vote: %w", err)
			}
			entity.Vote = nil
		} else {
			if err := entity.AddVote(next); err != nil {
				return err
			}
			vote := &domain.Vote{UserID: userID, Kind: kind, EntityID: entityID, Direction: next}
			if err := s.votes.UpsertVote(ctx, vote); err != nil {
				return fmt.Errorf("save vote: %w", err)
			}
			entity.Vote = vote
		}

		if err := s.votes.SaveTallies(ctx, entity); err != nil {
			return fmt.Errorf("save tallies: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != next {
		s.events.Dispatch(ctx, domain.VoteChanged{
			UserID:   userID,
			Kind:     kind,
			EntityID: entityID,
			OwnerID:  entity.Owner.ID,
			Previous: previous,
			Current:  next,
		})
	}
	return entity, nil
}

func (s *VoteService) currentVote(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64) (*domain.Vote, error) {
	vote, err := s.votes.GetVote(ctx, userID, kind, entityID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vote: %w", err)
	}
	return vote, nil
}
