package repository

import (
    "context"
    "database/sql"

    "github.com/admintermas/reservas-api/internal/model"
)

// CommentRepo provides access to the append-only reservation_comments
// audit trail.
type CommentRepo struct {
    db *sql.DB
}

// NewCommentRepo returns a new CommentRepo bound to the given database.
func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// InsertTx appends an audit comment within the scope of an existing
// transaction and populates the generated ID on the provided comment.
func (r *CommentRepo) InsertTx(ctx context.Context, tx *sql.Tx, cm *model.Comment) error {
    const q = `INSERT INTO reservation_comments (reservation_id, text, comment_type, author)
               VALUES (?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, cm.ReservationID, cm.Text, cm.CommentType, cm.Author)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    cm.ID = uint64(id)
    return nil
}

// ListByReservation returns the audit comments for a reservation,
// newest first.
func (r *CommentRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Comment, error) {
    const q = `SELECT id, reservation_id, text, comment_type, author, created_at
               FROM reservation_comments
               WHERE reservation_id = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Comment, 0)
    for rows.Next() {
        var cm model.Comment
        if err := rows.Scan(&cm.ID, &cm.ReservationID, &cm.Text, &cm.CommentType, &cm.Author, &cm.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, cm)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
