package vocabulary

import (
	"reflect"
	"testing"
)

func TestCanonicalParameter(t *testing.T) {
	tests := map[string]string{
		"salinity":    "salinity",
		"PSAL":        "salinity",
		" temp ":      "temperature",
		"doxy":        "oxygen",
		"Chlorophyll": "chlorophyll",
		"bbp700":      "backscatter",
		"pH_in_situ":  "ph",
	}
	for in, want := range tests {
		got, ok := CanonicalParameter(in)
		if !ok || got != want {
			t.Errorf("CanonicalParameter(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	if _, ok := CanonicalParameter("ectoplasm"); ok {
		t.Error("ectoplasm must not resolve")
	}
}

func TestIsParameter_CanonicalOnly(t *testing.T) {
	if !IsParameter("salinity") {
		t.Error("salinity is canonical")
	}
	if IsParameter("psal") {
		t.Error("aliases are not canonical names")
	}
}

func TestLookupRegion(t *testing.T) {
	r, ok := LookupRegion("the arabian  sea")
	if !ok {
		t.Fatal("expected Arabian Sea to resolve")
	}
	if r.Name != "Arabian Sea" || r.Box.MinLon != 50 || r.Box.MaxLon != 75 {
		t.Errorf("unexpected region %+v", r)
	}

	if _, ok := LookupRegion("equator"); !ok {
		t.Error("alias equator must resolve")
	}
	if _, ok := LookupRegion("Atlantic"); ok {
		t.Error("bare Atlantic is ambiguous and must not resolve")
	}
}

func TestRegionCandidates(t *testing.T) {
	got := RegionCandidates("Atlantic")
	want := []string{"North Atlantic", "South Atlantic"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegionCandidates(Atlantic) = %v, want %v", got, want)
	}

	got = RegionCandidates("Sea of Japan")
	if len(got) != len(Regions) {
		t.Errorf("expected all regions for no overlap, got %v", got)
	}
}

func TestValidFloatID(t *testing.T) {
	for _, id := range []string{"2902116", "6903001"} {
		if !ValidFloatID(id) {
			t.Errorf("%s should be valid", id)
		}
	}
	for _, id := range []string{"", "290211", "29021160", "0902116", "29O2116"} {
		if ValidFloatID(id) {
			t.Errorf("%q should be invalid", id)
		}
	}
}

func TestSortParameters(t *testing.T) {
	names := []string{"zeta", "salinity", "ectoplasm", "temperature"}
	SortParameters(names)
	want := []string{"temperature", "salinity", "ectoplasm", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}
