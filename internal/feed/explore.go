package feed

import (
	"math"
	"sort"
	"strings"

	"github.com/anonto42/nearby/backend/internal/models"
)

const (
	PopularShare   = 0.2
	PopularTagsMax = 10
)

// TagCount is a tag and the number of posts using it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// PopularPosts returns the most liked fifth of posts (rounded up), most
// liked first. Ties keep the input order.
func PopularPosts(posts []*models.Post) []*models.Post {
	if len(posts) == 0 {
		return []*models.Post{}
	}
	sorted := append([]*models.Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Likes > sorted[j].Likes
	})
	n := int(math.Ceil(float64(len(sorted)) * PopularShare))
	return sorted[:n]
}

// PopularTags counts tags case-insensitively and returns the top limit,
// most used first, ties broken alphabetically.
func PopularTags(posts []*models.Post, limit int) []TagCount {
	counts := make(map[string]int)
	for _, p := range posts {
		for _, t := range p.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			counts[t]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
