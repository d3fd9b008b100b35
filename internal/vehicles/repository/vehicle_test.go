package repository

import (
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func vehicleSearchPattern(t *testing.T, query bson.M) string {
	t.Helper()

	or, ok := query["$or"].(bson.A)
	if !ok || len(or) == 0 {
		t.Fatalf("expected $or branches in query, got %v", query)
	}
	branch, ok := or[0].(bson.M)
	if !ok {
		t.Fatalf("expected bson.M branch, got %T", or[0])
	}
	regex, ok := branch["make"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected a regex on make, got %v", branch)
	}
	return regex.Pattern
}

func TestBuildSearchFilter_EscapesRegexMetacharacters(t *testing.T) {
	pattern := vehicleSearchPattern(t, buildSearchFilter(SearchFilter{Search: "land rover (defender"}))

	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("search pattern %q does not compile: %v", pattern, err)
	}
	if !re.MatchString("land rover (defender 110") {
		t.Errorf("pattern %q should match the literal search text", pattern)
	}
	if re.MatchString("land rover defender") {
		t.Errorf("pattern %q should not treat '(' as a group", pattern)
	}
}
