package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"backend-umaklink/internal/db"

	"github.com/jackc/pgx/v5"
)

const (
	defaultListLimit   = 50
	maxListLimit       = 200
	defaultSearchLimit = 50
)

// EventPublisher fans post events out to connected clients.
type EventPublisher interface {
	Publish(topic string, payload []byte)
}

// AuditRecorder stores staff actions. Failures are never fatal.
type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, targetID, details string) error
}

// Notifier delivers a push notification to a single user.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, title, body, description, imageURL string, data map[string]string) error
}

// Hooks are the optional side effects of staff actions.
type Hooks struct {
	Events   EventPublisher
	Audit    AuditRecorder
	Notifier Notifier
}

type Service struct {
	db    db.Querier
	hooks Hooks
}

func NewService(db db.Querier, hooks Hooks) *Service {
	return &Service{db: db, hooks: hooks}
}

const postColumns = `post_id::text, poster_id, poster_name, COALESCE(poster_avatar,''), is_anonymous,
		       item_name, item_description, item_category, COALESCE(item_image_url,''),
		       post_type, submission_status, item_status, COALESCE(last_seen_location,''),
		       submitted_on, accepted_on, claimed_on, last_seen_at,
		       COALESCE(claimed_by_name,''), COALESCE(claimed_by_contact,''), COALESCE(accepted_by_staff_name,'')`

var orderColumns = map[string]string{
	"submitted_on": "submitted_on",
	"accepted_on":  "accepted_on",
	"claimed_on":   "claimed_on",
	"last_seen_at": "last_seen_at",
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.PosterID, &p.PosterName, &p.PosterAvatar, &p.IsAnonymous,
		&p.ItemName, &p.ItemDescription, &p.ItemCategory, &p.ItemImageURL,
		&p.PostType, &p.SubmissionStatus, &p.ItemStatus, &p.LastSeenLocation,
		&p.SubmittedOn, &p.AcceptedOn, &p.ClaimedOn, &p.LastSeenAt,
		&p.ClaimedByName, &p.ClaimedByContact, &p.AcceptedByStaffName)
	if err != nil {
		return Post{}, err
	}
	return p, nil
}

// buildListQuery turns list parameters into SQL. Membership of a post in a
// list is decided here and nowhere else.
func buildListQuery(params ListParams) (string, []any, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	switch params.Type {
	case "", "all":
	case "public":
		add("submission_status = ?", SubmissionAccepted)
	case SubmissionPending, SubmissionRejected:
		add("submission_status = ?", params.Type)
	case "own":
		if params.PosterID == "" {
			return "", nil, fmt.Errorf("%w: poster_id required for own posts", ErrValidation)
		}
	default:
		return "", nil, fmt.Errorf("%w: unknown list type %q", ErrValidation, params.Type)
	}

	switch params.ItemType {
	case "":
	case TypeLost, TypeFound:
		add("post_type = ?", params.ItemType)
	default:
		return "", nil, fmt.Errorf("%w: unknown item type %q", ErrValidation, params.ItemType)
	}

	if params.PosterID != "" {
		add("poster_id = ?", params.PosterID)
	}
	if len(params.PostIDs) > 0 {
		add("post_id::text = ANY(?)", params.PostIDs)
	}
	if len(params.ExcludeIDs) > 0 {
		add("NOT (post_id::text = ANY(?))", params.ExcludeIDs)
	}

	orderBy := "submitted_on"
	if params.OrderBy != "" {
		col, ok := orderColumns[params.OrderBy]
		if !ok {
			return "", nil, fmt.Errorf("%w: cannot order by %q", ErrValidation, params.OrderBy)
		}
		orderBy = col
	}
	direction := "DESC"
	switch strings.ToLower(params.OrderDirection) {
	case "", "desc":
	case "asc":
		direction = "ASC"
	default:
		return "", nil, fmt.Errorf("%w: bad order direction %q", ErrValidation, params.OrderDirection)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(postColumns)
	sb.WriteString("\n\t\tFROM posts")
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, "\n\t\tORDER BY %s %s NULLS LAST, post_id DESC\n\t\tLIMIT $%d", orderBy, direction, len(args))
	return sb.String(), args, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Post, error) {
	query, args, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts WHERE post_id::text = $1
	`, id)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

func (s *Service) Create(ctx context.Context, input Post) (Post, error) {
	if input.PosterID == "" || input.ItemName == "" {
		return Post{}, fmt.Errorf("%w: poster_id and item_name required", ErrValidation)
	}
	if input.PostType != TypeLost && input.PostType != TypeFound {
		return Post{}, fmt.Errorf("%w: post_type must be lost or found", ErrValidation)
	}
	input.SubmissionStatus = SubmissionPending
	input.ItemStatus = input.PostType

	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (poster_id, poster_name, poster_avatar, is_anonymous, item_name, item_description,
		                   item_category, item_image_url, post_type, submission_status, item_status,
		                   last_seen_location, last_seen_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING post_id::text, submitted_on
	`, input.PosterID, input.PosterName, input.PosterAvatar, input.IsAnonymous, input.ItemName, input.ItemDescription,
		input.ItemCategory, input.ItemImageURL, input.PostType, input.SubmissionStatus, input.ItemStatus,
		input.LastSeenLocation, input.LastSeenAt)
	if err := row.Scan(&input.ID, &input.SubmittedOn); err != nil {
		return Post{}, err
	}
	return input, nil
}

// Review accepts or rejects a pending submission. Posts that are missing or
// already reviewed yield ErrNotFound. Side effects run after the update and
// never undo it.
func (s *Service) Review(ctx context.Context, id string, req ReviewRequest) (Post, error) {
	if req.Status != SubmissionAccepted && req.Status != SubmissionRejected {
		return Post{}, fmt.Errorf("%w: status must be accepted or rejected", ErrValidation)
	}
	if req.StaffID == "" {
		return Post{}, fmt.Errorf("%w: staff_id required", ErrValidation)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE posts
		SET submission_status = $2,
		    accepted_on = CASE WHEN $2 = 'accepted' THEN now() ELSE accepted_on END,
		    accepted_by_staff_name = $3
		WHERE post_id::text = $1 AND submission_status = 'pending'
		RETURNING `+postColumns+`
	`, id, req.Status, req.StaffName)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}

	s.audit(ctx, req.StaffID, "post_"+req.Status, p.ID, req.Reason)

	if s.hooks.Notifier != nil {
		title := "Your post was " + req.Status
		body := fmt.Sprintf("%q has been %s by staff.", p.ItemName, req.Status)
		err := s.hooks.Notifier.NotifyUser(ctx, p.PosterID, title, body, req.Reason, p.ItemImageURL,
			map[string]string{"post_id": p.ID, "type": "post_review"})
		if err != nil {
			log.Printf("review notification for post %s failed: %v", p.ID, err)
		}
	}

	if req.Status == SubmissionAccepted {
		s.publish(p)
	}
	return p, nil
}

// Claim records the hand-over of an accepted post to its owner.
func (s *Service) Claim(ctx context.Context, id string, req ClaimRequest) (Post, error) {
	if strings.TrimSpace(req.ClaimerName) == "" {
		return Post{}, fmt.Errorf("%w: claimer_name required", ErrValidation)
	}
	if strings.TrimSpace(req.ClaimerContact) == "" {
		return Post{}, fmt.Errorf("%w: claimer_contact required", ErrValidation)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE posts
		SET item_status = 'claimed', claimed_on = now(),
		    claimed_by_name = $2, claimed_by_contact = $3
		WHERE post_id::text = $1 AND submission_status = 'accepted'
		RETURNING `+postColumns+`
	`, id, req.ClaimerName, req.ClaimerContact)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, err
	}

	s.audit(ctx, req.StaffID, "post_claimed", p.ID, req.ClaimerName)
	return p, nil
}

// Search runs the full-text search RPC. The term is parsed with
// websearch_to_tsquery so OR-composed phrases keep their meaning.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]SearchRow, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	categories := params.Categories
	if categories == nil {
		categories = []string{}
	}
	statuses := params.ItemStatuses
	if statuses == nil {
		statuses = []string{}
	}

	rows, err := s.db.Query(ctx, `
		SELECT p.post_id::text, p.submission_status, p.item_status,
		       COALESCE(ts_rank(p.search_vector, q), 0) AS rank
		FROM posts p, websearch_to_tsquery('english', $1) q
		WHERE ($1 = '' OR p.search_vector @@ q)
		  AND ($3::date IS NULL OR (p.last_seen_at AT TIME ZONE 'Asia/Manila')::date = $3::date)
		  AND (COALESCE(cardinality($4::text[]), 0) = 0 OR p.item_category = ANY($4))
		  AND ($5 = '' OR p.last_seen_location ILIKE '%' || $5 || '%')
		  AND ($6::date IS NULL OR (p.claimed_on AT TIME ZONE 'Asia/Manila')::date >= $6::date)
		  AND ($7::date IS NULL OR (p.claimed_on AT TIME ZONE 'Asia/Manila')::date <= $7::date)
		  AND (COALESCE(cardinality($8::text[]), 0) = 0 OR p.item_status = ANY($8))
		ORDER BY rank DESC, p.submitted_on DESC
		LIMIT $2
	`, params.SearchTerm, limit, nullable(params.Date), categories, params.Location,
		nullable(params.ClaimFrom), nullable(params.ClaimTo), statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []SearchRow{}
	for rows.Next() {
		var r SearchRow
		if err := rows.Scan(&r.ID, &r.SubmissionStatus, &r.ItemStatus, &r.Rank); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Service) audit(ctx context.Context, actorID, action, targetID, details string) {
	if s.hooks.Audit == nil {
		return
	}
	if err := s.hooks.Audit.Record(ctx, actorID, action, targetID, details); err != nil {
		log.Printf("audit %s on %s failed: %v", action, targetID, err)
	}
}

// Event is pushed to the posts topic when a post becomes publicly visible.
type Event struct {
	Type     string `json:"type"`
	PostID   string `json:"post_id"`
	PostType string `json:"post_type"`
}

const EventsTopic = "posts"

func (s *Service) publish(p Post) {
	if s.hooks.Events == nil {
		return
	}
	payload, _ := json.Marshal(Event{Type: "post_accepted", PostID: p.ID, PostType: p.PostType})
	s.hooks.Events.Publish(EventsTopic, payload)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
