// Package feed decides which posts a user sees on the feed and on the map.
package feed

import (
	"strings"
	"time"

	"github.com/anonto42/nearby/backend/internal/models"
	"github.com/anonto42/nearby/backend/pkg/geo"
	"github.com/anonto42/nearby/backend/pkg/tags"
)

// LocationPolicy decides how a post without coordinates is treated while a
// radius filter is active and the viewer's location is known.
type LocationPolicy int

const (
	// IncludeMissing keeps posts without a location (feed).
	IncludeMissing LocationPolicy = iota
	// ExcludeMissing drops them; a map has nowhere to place them.
	ExcludeMissing
)

// Query describes one feed request.
type Query struct {
	Now         time.Time
	Search      string
	SelectedTag string
	Origin      *geo.Point // viewer location, nil when unavailable
	RadiusKm    float64
	Missing     LocationPolicy
}

// Visible reports whether p belongs in the feed described by q.
func Visible(p *models.Post, q Query) bool {
	if !p.Approved() {
		return false
	}
	if p.ExpiresAt.IsZero() || !p.ExpiresAt.After(q.Now) {
		return false
	}
	if !MatchesSearch(p, q.Search) {
		return false
	}
	if q.SelectedTag != "" && !tags.MatchAny(p.Tags, q.SelectedTag) {
		return false
	}
	if strings.TrimSpace(q.Search) != "" || q.SelectedTag != "" {
		return true
	}
	return InRadius(p, q.Origin, q.RadiusKm, q.Missing)
}

// Filter returns the posts of in that are Visible, preserving order.
func Filter(in []*models.Post, q Query) []*models.Post {
	out := make([]*models.Post, 0, len(in))
	for _, p := range in {
		if Visible(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// MatchesSearch reports whether search is empty or found in the title,
// caption, a tag or the author name. "anonymous" finds anonymous posts.
func MatchesSearch(p *models.Post, search string) bool {
	if strings.TrimSpace(search) == "" {
		return true
	}
	s := strings.ToLower(search)

	if strings.Contains(strings.ToLower(p.Title), s) ||
		strings.Contains(strings.ToLower(p.Caption), s) ||
		tags.MatchAny(p.Tags, search) {
		return true
	}
	if p.Username != nil && strings.Contains(strings.ToLower(*p.Username), s) {
		return true
	}
	return p.IsAnonymous && s == "anonymous"
}

// InRadius reports whether p lies within radiusKm of origin. An unknown
// origin puts every post in range.
func InRadius(p *models.Post, origin *geo.Point, radiusKm float64, missing LocationPolicy) bool {
	if origin == nil {
		return true
	}
	if !p.HasLocation() {
		return missing == IncludeMissing
	}
	return geo.Within(*origin, p.Location.Point(), radiusKm)
}

// MapQuery describes the map view: several tag chips may be selected at once
// and the radius always applies.
type MapQuery struct {
	Now      time.Time
	Tags     []string
	Origin   *geo.Point
	RadiusKm float64
}

// FilterMap returns the posts to place on the map.
func FilterMap(in []*models.Post, q MapQuery) []*models.Post {
	out := make([]*models.Post, 0, len(in))
	for _, p := range in {
		if !p.Approved() || !p.ExpiresAt.After(q.Now) || !p.HasLocation() {
			continue
		}
		if len(q.Tags) > 0 && !matchesAnyTag(p.Tags, q.Tags) {
			continue
		}
		if !InRadius(p, q.Origin, q.RadiusKm, ExcludeMissing) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesAnyTag(postTags, selected []string) bool {
	for _, s := range selected {
		if tags.MatchAny(postTags, s) {
			return true
		}
	}
	return false
}
