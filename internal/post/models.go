package post

import (
	"errors"
	"time"
)

// Campus time. Stored and queried instants always use this fixed offset so
// search semantics do not depend on the client's zone.
var CampusZone = time.FixedZone("UTC+8", 8*60*60)

const (
	TypeLost  = "lost"
	TypeFound = "found"
)

const (
	SubmissionPending  = "pending"
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
)

const (
	ItemLost      = "lost"
	ItemFound     = "found"
	ItemClaimed   = "claimed"
	ItemUnclaimed = "unclaimed"
	ItemReturned  = "returned"
	ItemDiscarded = "discarded"
)

var (
	ErrNotFound   = errors.New("post not found")
	ErrValidation = errors.New("validation failed")
)

// Post is the read projection of a lost or found item report.
type Post struct {
	ID                  string     `json:"post_id"`
	PosterID            string     `json:"poster_id"`
	PosterName          string     `json:"poster_name"`
	PosterAvatar        string     `json:"poster_avatar,omitempty"`
	IsAnonymous         bool       `json:"is_anonymous"`
	ItemName            string     `json:"item_name"`
	ItemDescription     string     `json:"item_description"`
	ItemCategory        string     `json:"item_category"`
	ItemImageURL        string     `json:"item_image_url,omitempty"`
	PostType            string     `json:"post_type"`
	SubmissionStatus    string     `json:"submission_status"`
	ItemStatus          string     `json:"item_status"`
	LastSeenLocation    string     `json:"last_seen_location,omitempty"`
	SubmittedOn         time.Time  `json:"submitted_on"`
	AcceptedOn          *time.Time `json:"accepted_on,omitempty"`
	ClaimedOn           *time.Time `json:"claimed_on,omitempty"`
	LastSeenAt          *time.Time `json:"last_seen_at,omitempty"`
	ClaimedByName       string     `json:"claimed_by_name,omitempty"`
	ClaimedByContact    string     `json:"claimed_by_contact,omitempty"`
	AcceptedByStaffName string     `json:"accepted_by_staff_name,omitempty"`
}

// ListParams mirrors the list query accepted by GET /posts.
type ListParams struct {
	Type           string   `json:"type"`
	ItemType       string   `json:"item_type,omitempty"`
	PostIDs        []string `json:"post_ids,omitempty"`
	PosterID       string   `json:"poster_id,omitempty"`
	ExcludeIDs     []string `json:"exclude_ids,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	OrderBy        string   `json:"order_by,omitempty"`
	OrderDirection string   `json:"order_direction,omitempty"`
}

// SearchParams is the body of the search_posts RPC.
type SearchParams struct {
	SearchTerm   string   `json:"search_term"`
	Limit        int      `json:"limit_count"`
	Date         string   `json:"search_date,omitempty"`
	Categories   []string `json:"category_filter,omitempty"`
	Location     string   `json:"location_filter,omitempty"`
	ClaimFrom    string   `json:"claim_from_date,omitempty"`
	ClaimTo      string   `json:"claim_to_date,omitempty"`
	ItemStatuses []string `json:"item_status_filter,omitempty"`
}

// SearchRow is one search_posts result row.
type SearchRow struct {
	ID               string  `json:"post_id"`
	SubmissionStatus string  `json:"submission_status"`
	ItemStatus       string  `json:"item_status"`
	Rank             float64 `json:"rank"`
}

type ReviewRequest struct {
	Status    string `json:"status"`
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
	Reason    string `json:"reason,omitempty"`
}

type ClaimRequest struct {
	ClaimerName    string `json:"claimer_name"`
	ClaimerContact string `json:"claimer_contact"`
	ClaimerEmail   string `json:"claimer_email,omitempty"`
	StaffID        string `json:"staff_id"`
}
