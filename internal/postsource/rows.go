package postsource

import (
	"encoding/json"
	"strconv"

	"backend-umaklink/internal/post"
)

// idKeys are the names search rows have carried their id under.
var idKeys = []string{"id", "post_id", "postId", "postID"}

// normalizeRow is the only place that knows about the id key variants.
func normalizeRow(raw map[string]any) (post.SearchRow, bool) {
	var row post.SearchRow
	for _, k := range idKeys {
		if id := idString(raw[k]); id != "" {
			row.ID = id
			break
		}
	}
	if row.ID == "" {
		return post.SearchRow{}, false
	}
	row.SubmissionStatus, _ = raw["submission_status"].(string)
	row.ItemStatus, _ = raw["item_status"].(string)
	switch rank := raw["rank"].(type) {
	case float64:
		row.Rank = rank
	case json.Number:
		row.Rank, _ = rank.Float64()
	}
	return row, true
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}
