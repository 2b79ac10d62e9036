package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// SortBy creates a single-field sort option with the given direction
// (1 ascending, -1 descending).
func SortBy(field string, direction int) bson.D {
	return bson.D{{Key: field, Value: direction}}
}
