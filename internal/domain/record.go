package domain

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

type PackageStatus string

const (
	StatusDraft     PackageStatus = "draft"
	StatusPublished PackageStatus = "published"
)

func (s PackageStatus) Valid() bool { return s == StatusDraft || s == StatusPublished }

type Duration struct {
	Days   int `json:"days" mapstructure:"days"`
	Nights int `json:"nights" mapstructure:"nights"`
}

type GroupSize struct {
	Min   int `json:"min" mapstructure:"min"`
	Max   int `json:"max" mapstructure:"max"`
	Ideal int `json:"ideal" mapstructure:"ideal"`
}

type Pricing struct {
	AdultPrice  float64 `json:"adultPrice" mapstructure:"adultPrice"`
	ChildPrice  float64 `json:"childPrice" mapstructure:"childPrice"`
	InfantPrice float64 `json:"infantPrice" mapstructure:"infantPrice"`
	Currency    string  `json:"currency" mapstructure:"currency"`
}

type ItineraryDay struct {
	Day         int      `json:"day" mapstructure:"day"`
	Title       string   `json:"title" mapstructure:"title"`
	Description string   `json:"description" mapstructure:"description"`
	Activities  []string `json:"activities,omitempty" mapstructure:"activities"`
}

// PackageRecord is a persisted package. Fields holds the full draft; the
// typed members are projections of it used for listing and sorting.
type PackageRecord struct {
	ID           string         `json:"id"`
	Type         PackageType    `json:"type"`
	Status       PackageStatus  `json:"status"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Destinations []string       `json:"destinations,omitempty"`
	Duration     Duration       `json:"duration"`
	GroupSize    GroupSize      `json:"groupSize"`
	Difficulty   string         `json:"difficulty,omitempty"`
	Pricing      Pricing        `json:"pricing"`
	Itinerary    []ItineraryDay `json:"itinerary,omitempty"`
	Fields       Draft          `json:"fields"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	PublishedAt  *time.Time     `json:"publishedAt,omitempty"`
}

type projection struct {
	Title        string         `mapstructure:"title"`
	Name         string         `mapstructure:"name"`
	Description  string         `mapstructure:"description"`
	Destinations []string       `mapstructure:"destinations"`
	Duration     Duration       `mapstructure:"duration"`
	GroupSize    GroupSize      `mapstructure:"groupSize"`
	Difficulty   string         `mapstructure:"difficulty"`
	Itinerary    []ItineraryDay `mapstructure:"itinerary"`
	Pricing      Pricing        `mapstructure:",squash"`
}

// Project refreshes the typed members of r from r.Fields. Malformed values
// leave the matching member zeroed and are reported in the returned error;
// well-formed members are still applied.
func (r *PackageRecord) Project() error {
	var p projection
	in := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		in[string(k)] = v
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return err
	}
	derr := dec.Decode(in)

	if t, ok := r.Fields.Type(); ok {
		r.Type = t
	} else {
		r.Type = PackageType(r.Fields.RawType())
	}
	r.Title = p.Title
	if r.Title == "" {
		r.Title = p.Name
	}
	r.Description = p.Description
	r.Destinations = p.Destinations
	r.Duration = p.Duration
	r.GroupSize = p.GroupSize
	r.Difficulty = p.Difficulty
	r.Itinerary = p.Itinerary
	r.Pricing = p.Pricing
	return derr
}

// NewRecord builds an unsaved record for d.
func NewRecord(d Draft, status PackageStatus) (PackageRecord, error) {
	r := PackageRecord{Status: status, Fields: d.Clone()}
	err := r.Project()
	return r, err
}
