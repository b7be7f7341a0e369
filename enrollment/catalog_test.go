package enrollment

import "testing"

func TestDefaultCatalog_Parses(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if len(catalog.Courses) == 0 || len(catalog.Locations) == 0 {
		t.Fatal("expected courses and locations")
	}
}

func TestCatalog_CourseNameSubstringPrecedence(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}

	// "B9-SitPractice-2024" contains both the SitPractice and B9 codes; the
	// earlier catalog entry must win.
	name, ok := catalog.CourseName("B9-SitPractice-2024")
	if !ok {
		t.Fatal("expected a match")
	}
	if name != "Sit Practice Clinical Program" {
		t.Fatalf("expected SitPractice entry to win, got %q", name)
	}

	name, ok = catalog.CourseName("B9-Standalone")
	if !ok || name != "Bridging Module 9" {
		t.Fatalf("expected B9 entry for plain bridging code, got %q (%v)", name, ok)
	}
}

func TestCatalog_CourseNameIsCaseInsensitive(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	name, ok := catalog.CourseName("b9-sitpractice-2024")
	if !ok || name != "Sit Practice Clinical Program" {
		t.Fatalf("expected case-insensitive match, got %q (%v)", name, ok)
	}
}

func TestCatalog_CourseNameUnknown(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if _, ok := catalog.CourseName("Pottery-101"); ok {
		t.Fatal("expected no match for unknown course")
	}
	if _, ok := catalog.CourseName(""); ok {
		t.Fatal("expected no match for empty code")
	}
}

func TestCatalog_LocationAddressExactMatch(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	address, ok := catalog.LocationAddress("NorthYork")
	if !ok || address == "" {
		t.Fatalf("expected NorthYork address, got %q (%v)", address, ok)
	}
	// Substrings do not match locations.
	if _, ok := catalog.LocationAddress("North"); ok {
		t.Fatal("expected no partial match on locations")
	}
}

func TestParseCatalog_RejectsDuplicates(t *testing.T) {
	data := []byte(`
courses:
  - code: DH
    name: First
  - code: dh
    name: Second
locations: []
`)
	if _, err := ParseCatalog(data); err == nil {
		t.Fatal("expected duplicate course code to be rejected")
	}
}
