package audit

import (
	"context"
	"time"

	"backend-umaklink/internal/db"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Entry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder writes staff and admin actions to audit_logs.
type Recorder struct {
	db db.Querier
}

func NewRecorder(db db.Querier) *Recorder {
	return &Recorder{db: db}
}

func (r *Recorder) Record(ctx context.Context, actorID, action, targetID, details string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, target_id, details)
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.NewString(), actorID, action, targetID, details)
	return err
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id::text, actor_id, action, target_id, COALESCE(details,''), created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func RegisterRoutes(r fiber.Router, rec *Recorder, authMiddleware, adminOnly fiber.Handler) {
	r.Get("/", authMiddleware, adminOnly, func(c *fiber.Ctx) error {
		entries, err := rec.Recent(c.Context(), c.QueryInt("limit"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(entries)
	})
}
