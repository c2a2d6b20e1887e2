package civic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildNearbyQuery(t *testing.T) {
	center := Location{Latitude: 28.6, Longitude: 77.2}

	query, args := buildNearbyQuery(NearbyQuery{
		Center:        &center,
		RadiusDegrees: 0.1,
		Category:      CategoryRoadBlock,
		Limit:         10,
		NewestFirst:   true,
	})

	assert.Contains(t, query, "latitude BETWEEN $2 AND $3")
	assert.Contains(t, query, "longitude BETWEEN $4 AND $5")
	assert.Contains(t, query, "report_type = $6")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Contains(t, query, "LIMIT $7")
	assert.Len(t, args, 7)
	assert.Equal(t, "active", args[0])
	assert.InDelta(t, 28.5, args[1].(float64), 1e-9)
	assert.Equal(t, "road_block", args[5])
	assert.Equal(t, 10, args[6])
}

func TestBuildNearbyQuery_NoFilters(t *testing.T) {
	query, args := buildNearbyQuery(NearbyQuery{})

	assert.NotContains(t, query, "BETWEEN")
	assert.NotContains(t, query, "ORDER BY")
	assert.Contains(t, query, "LIMIT $2")
	assert.Equal(t, []interface{}{"active", ListLimit}, args)
}

func TestNearbyFilter(t *testing.T) {
	center := Location{Latitude: 19.0, Longitude: 72.8}

	filter := nearbyFilter(NearbyQuery{Center: &center, Category: CategoryWaterLog})

	assert.Equal(t, "active", filter["status"])
	assert.Equal(t, "water_log", filter["report_type"])
	lat, ok := filter["location.latitude"].(bson.M)
	assert.True(t, ok)
	assert.InDelta(t, 18.99, lat["$gte"].(float64), 1e-9)
	assert.InDelta(t, 19.01, lat["$lte"].(float64), 1e-9)
}

func TestMongoDocumentRoundTrip(t *testing.T) {
	reporter := "user-7"
	c := &Complaint{
		ID:          "c1",
		Location:    Location{Latitude: 1, Longitude: 2, Address: "Somewhere"},
		Category:    CategoryVisibility,
		Description: "Smog",
		Severity:    SeverityMedium,
		Status:      StatusInvestigating,
		ReporterID:  &reporter,
	}

	assert.Equal(t, c, toMongo(c).toComplaint())
}
