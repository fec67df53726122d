// Package tracker holds the client side of live location sharing: the pure
// derivations over polled location rows and the Session event loop that
// drives GPS sampling, throttled writes and polling.
package tracker

import (
	"sort"

	"festival-tracker-backend/internal/geo"
	"festival-tracker-backend/internal/models"
)

// DefaultCenter is where the map opens before the first fix.
var DefaultCenter = geo.Point{Latitude: 18.7883, Longitude: 98.9853}

// LatestByAuthor returns the newest row written by email, or nil. The
// backend only orders the page it returns, so the reduction happens here.
func LatestByAuthor(rows []*models.LocationUpdate, email string) *models.LocationUpdate {
	var latest *models.LocationUpdate
	for _, row := range rows {
		if row.CreatedByEmail != email {
			continue
		}
		if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
			latest = row
		}
	}
	return latest
}

// PartnerLocation returns the first row not written by email. With more
// than two members this is whichever non-self row comes first.
func PartnerLocation(rows []*models.LocationUpdate, email string) *models.LocationUpdate {
	for _, row := range rows {
		if row.CreatedByEmail != email {
			return row
		}
	}
	return nil
}

// SplitHistory separates history rows into the caller's and everyone else's.
func SplitHistory(rows []*models.LocationUpdate, email string) (mine, partner []*models.LocationUpdate) {
	for _, row := range rows {
		if row.CreatedByEmail == email {
			mine = append(mine, row)
		} else {
			partner = append(partner, row)
		}
	}
	return mine, partner
}

// Path orders rows oldest first and returns their points. rows is not modified.
func Path(rows []*models.LocationUpdate) []geo.Point {
	sorted := make([]*models.LocationUpdate, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	path := make([]geo.Point, len(sorted))
	for i, row := range sorted {
		path[i] = PointOf(row)
	}
	return path
}

// PointOf returns the coordinates of a row
func PointOf(row *models.LocationUpdate) geo.Point {
	return geo.Point{Latitude: row.Latitude, Longitude: row.Longitude}
}

// FixOf converts a row into a geo.Fix, nil-safe.
func FixOf(row *models.LocationUpdate) *geo.Fix {
	if row == nil {
		return nil
	}
	accuracy := row.Accuracy
	return &geo.Fix{Point: PointOf(row), Accuracy: &accuracy}
}

// Box is a lat/lon bounding box
type Box struct {
	South, West, North, East float64
}

// Bounds returns the box covering the current positions and, when
// withHistory is set, every history point. ok is false when there is nothing
// to cover.
func Bounds(me, partner *models.LocationUpdate, withHistory bool, history ...[]geo.Point) (box Box, ok bool) {
	extend := func(p geo.Point) {
		if !ok {
			box = Box{South: p.Latitude, North: p.Latitude, West: p.Longitude, East: p.Longitude}
			ok = true
			return
		}
		box.South = min(box.South, p.Latitude)
		box.North = max(box.North, p.Latitude)
		box.West = min(box.West, p.Longitude)
		box.East = max(box.East, p.Longitude)
	}

	if me != nil {
		extend(PointOf(me))
	}
	if partner != nil {
		extend(PointOf(partner))
	}
	if withHistory {
		for _, path := range history {
			for _, p := range path {
				extend(p)
			}
		}
	}
	return box, ok
}

// Center is the map center: my position when known, DefaultCenter otherwise.
func Center(me *models.LocationUpdate) geo.Point {
	if me == nil {
		return DefaultCenter
	}
	return PointOf(me)
}
