package tcx

import (
	"encoding/xml"
	"fmt"
)

// Document is the root of a Training Center XML file.
type Document struct {
	XMLName    xml.Name   `xml:"TrainingCenterDatabase"`
	Activities []Activity `xml:"Activities>Activity"`
}

// Activity is one recorded workout within a document.
type Activity struct {
	Sport string `xml:"Sport,attr"`
	ID    string `xml:"Id"`
	Laps  []Lap  `xml:"Lap"`
}

// Lap carries the aggregate measures and samples for one lap.
type Lap struct {
	StartTime        string       `xml:"StartTime,attr"`
	TotalTimeSeconds float64      `xml:"TotalTimeSeconds"`
	DistanceMeters   float64      `xml:"DistanceMeters"`
	Trackpoints      []Trackpoint `xml:"Track>Trackpoint"`
}

// Trackpoint is a single timestamped sample.
type Trackpoint struct {
	Time      string    `xml:"Time"`
	Position  *Position `xml:"Position"`
	HeartRate int       `xml:"HeartRateBpm>Value"`
}

// Position is a GPS coordinate pair.
type Position struct {
	Latitude  float64 `xml:"LatitudeDegrees"`
	Longitude float64 `xml:"LongitudeDegrees"`
}

// Parse decodes raw TCX bytes into a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed TCX: %w", err)
	}
	return &doc, nil
}

// Summary aggregates the measures the engine needs from a document:
// total duration and distance for duplicate matching, and sample counts for
// the validity check.
type Summary struct {
	DurationSec float64
	DistanceM   float64
	Trackpoints int
	WithGPS     int
	WithHR      int
}

// Summarize walks every activity and lap, summing durations and distances
// and counting samples.
func (d *Document) Summarize() Summary {
	var s Summary
	for _, activity := range d.Activities {
		for _, lap := range activity.Laps {
			s.DurationSec += lap.TotalTimeSeconds
			s.DistanceM += lap.DistanceMeters
			s.Trackpoints += len(lap.Trackpoints)
			for _, tp := range lap.Trackpoints {
				if tp.Position != nil {
					s.WithGPS++
				}
				if tp.HeartRate > 0 {
					s.WithHR++
				}
			}
		}
	}
	return s
}
