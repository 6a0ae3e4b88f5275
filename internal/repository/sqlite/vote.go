package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/updog/internal/domain"
)

// votableTables maps each votable kind to the table holding its tallies.
var votableTables = map[domain.VotableKind]string{
	domain.VotableComment: "comments",
	domain.VotablePost:    "posts",
}

// VoteRepository implements domain.VoteRepository using SQLite.
type VoteRepository struct {
	db *sql.DB
}

func tableFor(kind domain.VotableKind) (string, error) {
	table, ok := votableTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown votable kind %q", domain.ErrInvalidVote, kind)
	}
	return table, nil
}

// GetVotable loads a comment or post together with its owner.
func (r *VoteRepository) GetVotable(ctx context.Context, kind domain.VotableKind, id int64) (*domain.VotableEntity, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	entity := &domain.VotableEntity{Kind: kind}
	owner := &domain.User{}
	var email sql.NullString
	err = conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT e.id, e.upvotes, e.downvotes,
		        u.id, u.username, u.email, u.password_hash, u.comment_karma, u.post_karma, u.is_admin, u.joined_date, u.updated_at
		 FROM `+table+` e JOIN users u ON u.id = e.user_id
		 WHERE e.id = ?`, id,
	).Scan(&entity.ID, &entity.Upvotes, &entity.Downvotes,
		&owner.ID, &owner.Username, &email, &owner.PasswordHash,
		&owner.CommentKarma, &owner.PostKarma, &owner.IsAdmin, &owner.JoinedDate, &owner.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	owner.Email = email.String
	entity.Owner = owner
	return entity, nil
}

// SaveTallies writes the entity's vote counters and its owner's karma.
// Call it within a transaction so both land together.
func (r *VoteRepository) SaveTallies(ctx context.Context, entity *domain.VotableEntity) error {
	table, err := tableFor(entity.Kind)
	if err != nil {
		return err
	}
	if entity.Owner == nil {
		return fmt.Errorf("%w: %s %d has no owner", domain.ErrInvalidVote, entity.Kind, entity.ID)
	}

	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx,
		`UPDATE `+table+` SET upvotes = ?, downvotes = ? WHERE id = ?`,
		entity.Upvotes, entity.Downvotes, entity.ID,
	); err != nil {
		return fmt.Errorf("update %s tallies: %w", entity.Kind, err)
	}

	now := time.Now().UTC()
	if _, err := q.ExecContext(ctx,
		`UPDATE users SET comment_karma = ?, post_karma = ?, updated_at = ? WHERE id = ?`,
		entity.Owner.CommentKarma, entity.Owner.PostKarma, now, entity.Owner.ID,
	); err != nil {
		return fmt.Errorf("update owner karma: %w", err)
	}
	entity.Owner.UpdatedAt = now
	return nil
}

func (r *VoteRepository) GetVote(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64) (*domain.Vote, error) {
	v := &domain.Vote{}
	var k string
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT user_id, kind, entity_id, direction FROM votes WHERE user_id = ? AND kind = ? AND entity_id = ?`,
		userID, string(kind), entityID,
	).Scan(&v.UserID, &k, &v.EntityID, &v.Direction)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query vote: %w", err)
	}
	v.Kind = domain.VotableKind(k)
	return v, nil
}

// UpsertVote records vote, replacing the user's earlier vote on the same entity.
func (r *VoteRepository) UpsertVote(ctx context.Context, vote *domain.Vote) error {
	now := time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO votes (user_id, kind, entity_id, direction, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, kind, entity_id) DO UPDATE SET direction = excluded.direction, updated_at = excluded.updated_at`,
		vote.UserID, string(vote.Kind), vote.EntityID, int(vote.Direction), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (r *VoteRepository) DeleteVote(ctx context.Context, userID int64, kind domain.VotableKind, entityID int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM votes WHERE user_id = ? AND kind = ? AND entity_id = ?`,
		userID, string(kind), entityID,
	)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// KarmaFromVotes recomputes a user's karma from the live vote rows on their
// comments and posts. It should always equal the stored aggregates.
func (r *VoteRepository) KarmaFromVotes(ctx context.Context, userID int64) (commentKarma, postKarma int, err error) {
	err = conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT
		   COALESCE((SELECT SUM(v.direction) FROM votes v JOIN comments c ON v.kind = 'comment' AND c.id = v.entity_id WHERE c.user_id = ?), 0),
		   COALESCE((SELECT SUM(v.direction) FROM votes v JOIN posts p ON v.kind = 'post' AND p.id = v.entity_id WHERE p.user_id = ?), 0)`,
		userID, userID,
	).Scan(&commentKarma, &postKarma)
	if err != nil {
		return 0, 0, fmt.Errorf("sum karma from votes: %w", err)
	}
	return commentKarma, postKarma, nil
}
