package services

import "testing"

func TestPrettifyTestID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ssc-cgl-tier1-2024", "SSC CGL Tier 1 2024"},
		{"upsc-prelims-gs1", "UPSC Prelims GS 1"},
		{"rrb_ntpc_stage2", "RRB NTPC Stage 2"},
		{"ibps-po-mains", "IBPS PO Mains"},
		{"general-knowledge", "General Knowledge"},
		{"maths", "Maths"},
		{"", "Practice Test"},
		{"550e8400-e29b-41d4-a716-446655440000", "Practice Test"},
	}

	for _, tc := range cases {
		if got := PrettifyTestID(tc.in); got != tc.want {
			t.Errorf("PrettifyTestID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveTestTitle_CatalogWins(t *testing.T) {
	catalog := CatalogMap{"ssc-cgl-tier1-2024": "SSC CGL Tier I (2024)"}

	got := ResolveTestTitle(catalog, "ssc-cgl-tier1-2024", "whatever")
	if got != "SSC CGL Tier I (2024)" {
		t.Errorf("expected catalog title, got %q", got)
	}
}

func TestResolveTestTitle_ProvidedNonGeneric(t *testing.T) {
	got := ResolveTestTitle(nil, "some-test", "Polity Sectional")
	if got != "Polity Sectional" {
		t.Errorf("expected provided title, got %q", got)
	}
}

func TestResolveTestTitle_GenericProvidedFallsThrough(t *testing.T) {
	got := ResolveTestTitle(nil, "ssc-chsl-2023", "Test")
	if got != "SSC CHSL 2023" {
		t.Errorf("expected prettified id, got %q", got)
	}
}

func TestResolveTestTitle_UUIDFallsBackToGeneric(t *testing.T) {
	got := ResolveTestTitle(nil, "550e8400-e29b-41d4-a716-446655440000", "")
	if got != GenericTestTitle {
		t.Errorf("expected generic title, got %q", got)
	}
}
