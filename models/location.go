package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Location holds the reported position of an incident
type Location struct {
	Address     string      `json:"address" bson:"address"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

// Coordinates is the canonical latitude/longitude pair. Reporting clients
// send coordinates in three shapes: a bare [lat,lng] array, a {lat,lng}
// object, or a {latitude,longitude} object. The custom unmarshalers accept
// all three and normalize to this struct; marshaling always emits the
// array form.
type Coordinates struct {
	Latitude  float64 `bson:"latitude"`
	Longitude float64 `bson:"longitude"`
}

// Pair returns the canonical [lat, lng] representation.
func (c Coordinates) Pair() [2]float64 {
	return [2]float64{c.Latitude, c.Longitude}
}

// MarshalJSON emits the canonical [lat, lng] array form.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Pair())
}

// coordinateAliases covers both object spellings seen in the wild.
type coordinateAliases struct {
	Lat       *float64 `json:"lat" bson:"lat"`
	Lng       *float64 `json:"lng" bson:"lng"`
	Latitude  *float64 `json:"latitude" bson:"latitude"`
	Longitude *float64 `json:"longitude" bson:"longitude"`
}

func (a coordinateAliases) normalize() (Coordinates, error) {
	if a.Lat != nil && a.Lng != nil {
		return Coordinates{Latitude: *a.Lat, Longitude: *a.Lng}, nil
	}
	if a.Latitude != nil && a.Longitude != nil {
		return Coordinates{Latitude: *a.Latitude, Longitude: *a.Longitude}, nil
	}
	return Coordinates{}, fmt.Errorf("coordinates object missing lat/lng fields")
}

// UnmarshalJSON accepts [lat,lng], {lat,lng} and {latitude,longitude}
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("coordinates array must have exactly 2 elements, got %d", len(pair))
		}
		c.Latitude, c.Longitude = pair[0], pair[1]
		return nil
	}

	var alias coordinateAliases
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	norm, err := alias.normalize()
	if err != nil {
		return err
	}
	*c = norm
	return nil
}

// UnmarshalBSONValue handles legacy documents that stored coordinates as a
// bare array or with the lat/lng spelling, converting them into the
// canonical struct.
func (c *Coordinates) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}

	if t == bsontype.Array {
		var pair []float64
		if err := rv.Unmarshal(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("coordinates array must have exactly 2 elements, got %d", len(pair))
		}
		c.Latitude, c.Longitude = pair[0], pair[1]
		return nil
	}

	var alias coordinateAliases
	if err := rv.Unmarshal(&alias); err != nil {
		return err
	}
	norm, err := alias.normalize()
	if err != nil {
		return err
	}
	*c = norm
	return nil
}
