package utils

import (
	"encoding/xml"
	"math"
	"strings"
)

// HaversineDistance calculates the distance between two points on Earth
// using the Haversine formula. Returns distance in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type gpxDocument struct {
	TrackPoints []gpxPoint `xml:"trk>trkseg>trkpt"`
	RoutePoints []gpxPoint `xml:"rte>rtept"`
}

// GPXDistance parses a GPX document and sums the haversine distance over
// its track points, falling back to route points when no track is present.
// Returns meters; a document with fewer than two points yields zero.
func GPXDistance(gpxData string) (float64, error) {
	var doc gpxDocument
	decoder := xml.NewDecoder(strings.NewReader(gpxData))
	if err := decoder.Decode(&doc); err != nil {
		return 0, err
	}

	points := doc.TrackPoints
	if len(points) == 0 {
		points = doc.RoutePoints
	}

	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineDistance(
			points[i-1].Lat, points[i-1].Lon,
			points[i].Lat, points[i].Lon,
		)
	}
	return total, nil
}
