package integrity

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/terraed/backend/pkg/xcontext"
)

const earthRadiusMeters = 6371008.8

type gpsChecker struct{}

// NewGPSChecker checks the proof coordinates against the quest location. A
// quest without coordinates accepts proofs from anywhere.
func NewGPSChecker() *gpsChecker {
	return &gpsChecker{}
}

func (c *gpsChecker) Name() string {
	return GPSChecker
}

func (c *gpsChecker) Evaluate(ctx context.Context, in *Input) (*Evidence, error) {
	ev := &Evidence{Checker: GPSChecker}
	if !in.Quest.RequiresLocation() {
		ev.Valid = true
		return ev, nil
	}

	if !in.Submission.HasCoordinates() {
		ev.addReason("Quest requires a location but the proof has none")
		return ev, nil
	}

	lat, lng := in.Submission.Latitude.Float64, in.Submission.Longitude.Float64
	if !validCoordinates(lat, lng) {
		ev.addReason(fmt.Sprintf("Proof location (%v, %v) is not a valid coordinate", lat, lng))
		return ev, nil
	}

	radius := in.Quest.LocationRadiusM
	if radius <= 0 {
		radius = xcontext.Configs(ctx).Verification.DefaultRadiusM
	}

	distance := DistanceMeters(lat, lng, in.Quest.LocationLat.Float64, in.Quest.LocationLng.Float64)
	if distance > radius {
		ev.addReason(fmt.Sprintf("Proof location is %.0fm away from the quest location, the allowed radius is %.0fm",
			distance, radius))
		return ev, nil
	}

	ev.Valid = true
	return ev, nil
}

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * earthRadiusMeters
}

func validCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}

	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
