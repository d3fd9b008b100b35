package repository

import (
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func bookingSearchPattern(t *testing.T, filter bson.M) string {
	t.Helper()

	or, ok := filter["$or"].([]bson.M)
	if !ok || len(or) == 0 {
		t.Fatalf("expected $or branches in filter, got %v", filter)
	}
	regex, ok := or[0]["vehicle.make"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected a regex on vehicle.make, got %v", or[0])
	}
	return regex.Pattern
}

func TestBuildSearchFilter_EscapesRegexMetacharacters(t *testing.T) {
	repo := &mongoBookingRepository{}

	pattern := bookingSearchPattern(t, repo.buildSearchFilter(SearchFilter{Search: "thar (v2"}))

	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("search pattern %q does not compile: %v", pattern, err)
	}
	if !re.MatchString("thar (v2 edition") {
		t.Errorf("pattern %q should match the literal search text", pattern)
	}
	if re.MatchString("thar v2") {
		t.Errorf("pattern %q should not treat '(' as a group", pattern)
	}
}

func TestBuildSearchFilter_DotMatchesLiterally(t *testing.T) {
	repo := &mongoBookingRepository{}

	pattern := bookingSearchPattern(t, repo.buildSearchFilter(SearchFilter{Search: "jane.doe@example.com"}))

	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("search pattern %q does not compile: %v", pattern, err)
	}
	if !re.MatchString("jane.doe@example.com") {
		t.Errorf("pattern %q should match the exact address", pattern)
	}
	if re.MatchString("janexdoe@examplexcom") {
		t.Errorf("pattern %q should not treat '.' as a wildcard", pattern)
	}
}

func TestBuildSearchFilter_SearchCoversCustomerFields(t *testing.T) {
	repo := &mongoBookingRepository{}

	filter := repo.buildSearchFilter(SearchFilter{Search: "jane"})
	or, ok := filter["$or"].([]bson.M)
	if !ok {
		t.Fatalf("expected $or branches in filter, got %v", filter)
	}

	fields := make(map[string]bool)
	for _, branch := range or {
		for field := range branch {
			fields[field] = true
		}
	}
	for _, want := range []string{"vehicle.make", "vehicle.model", "details.name", "details.email"} {
		if !fields[want] {
			t.Errorf("expected search to cover %s, got %v", want, fields)
		}
	}
}
