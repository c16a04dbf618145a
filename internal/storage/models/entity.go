package models

import (
	"bytes"
	"encoding/json"
)

// Entity is a taste-graph record: an artist, place, destination and so on.
// Only the fields the app reads are typed; the upstream sends many more.
type Entity struct {
	EntityID    string           `json:"entity_id,omitempty"`
	QlooID      string           `json:"qloo_id,omitempty"`
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name,omitempty"`
	Title       string           `json:"title,omitempty"`
	Type        string           `json:"type,omitempty"`
	Subtype     string           `json:"subtype,omitempty"`
	Types       []string         `json:"types,omitempty"`
	Category    string           `json:"category,omitempty"`
	Domain      string           `json:"domain,omitempty"`
	Description string           `json:"description,omitempty"`
	Location    FlexString       `json:"location,omitempty"`
	City        string           `json:"city,omitempty"`
	Country     string           `json:"country,omitempty"`
	Image       FlexString       `json:"image,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	Popularity  float64          `json:"popularity,omitempty"`
	Properties  EntityProperties `json:"properties,omitempty"`
	Tags        []EntityTag      `json:"tags,omitempty"`
}

type EntityProperties struct {
	Description string     `json:"description,omitempty"`
	Image       FlexString `json:"image,omitempty"`
	Address     string     `json:"address,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
}

type EntityTag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Identifier returns the first non-empty upstream id.
func (e Entity) Identifier() string {
	switch {
	case e.EntityID != "":
		return e.EntityID
	case e.QlooID != "":
		return e.QlooID
	default:
		return e.ID
	}
}

func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Title
}

func (e Entity) RawDescription() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Properties.Description
}

func (e Entity) PlaceName() string {
	switch {
	case e.Location != "":
		return string(e.Location)
	case e.City != "":
		return e.City
	case e.Country != "":
		return e.Country
	default:
		return e.Properties.Address
	}
}

func (e Entity) PictureURL() string {
	switch {
	case e.Image != "":
		return string(e.Image)
	case e.ImageURL != "":
		return e.ImageURL
	default:
		return string(e.Properties.Image)
	}
}

// FlexString accepts either a JSON string or an object carrying one of
// url, name or address, which is how the upstream varies these fields.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			URL     string `json:"url"`
			Name    string `json:"name"`
			Address string `json:"address"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case obj.URL != "":
			*f = FlexString(obj.URL)
		case obj.Name != "":
			*f = FlexString(obj.Name)
		default:
			*f = FlexString(obj.Address)
		}
		return nil
	}
	*f = ""
	return nil
}
