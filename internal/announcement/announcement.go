package announcement

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"backend-umaklink/internal/db"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("title and body required")

const Topic = "announcements"

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type Broadcaster interface {
	NotifyAll(ctx context.Context, title, body, description, imageURL string, data map[string]string) error
}

type Recorder interface {
	Record(ctx context.Context, actorID, action, targetID, details string) error
}

type Publisher interface {
	Publish(topic string, payload []byte)
}

type Service struct {
	db     db.Querier
	push   Broadcaster
	audit  Recorder
	events Publisher
}

func NewService(db db.Querier, push Broadcaster, audit Recorder, events Publisher) *Service {
	return &Service{db: db, push: push, audit: audit, events: events}
}

// Create stores the announcement, then pushes it. The push and the audit
// entry are best effort; the stored announcement is never rolled back.
func (s *Service) Create(ctx context.Context, input Announcement) (Announcement, error) {
	if input.Title == "" || input.Body == "" {
		return Announcement{}, ErrValidation
	}
	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO announcements (id, title, body, description, image_url, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.Title, input.Body, input.Description, input.ImageURL, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Announcement{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, input.CreatedBy, "announcement_created", input.ID, input.Title); err != nil {
			log.Printf("audit announcement %s failed: %v", input.ID, err)
		}
	}
	if s.push != nil {
		err := s.push.NotifyAll(ctx, input.Title, input.Body, input.Description, input.ImageURL,
			map[string]string{"announcement_id": input.ID, "type": "announcement"})
		if err != nil {
			log.Printf("announcement push %s failed: %v", input.ID, err)
		}
	}
	if s.events != nil {
		payload, _ := json.Marshal(input)
		s.events.Publish(Topic, payload)
	}
	return input, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, title, body, COALESCE(description,''), COALESCE(image_url,''), created_by, created_at
		FROM announcements
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Announcement{}
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Description, &a.ImageURL, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
