package vocab

import "testing"

func TestSectorsLoaded(t *testing.T) {
	sectors := Sectors()
	if len(sectors) == 0 {
		t.Fatal("vocabulary is empty")
	}
	for _, s := range sectors {
		if s.Name == "" {
			t.Errorf("sector with empty name: %+v", s)
		}
	}
}

func TestCanonical(t *testing.T) {
	cases := []struct {
		hint          string
		wantSector    string
		wantSubsector string
		wantOK        bool
	}{
		{"Hôtellerie", "hotellerie", "", true},
		{"hotellerie", "hotellerie", "", true},
		{"EHPAD", "sante", "ehpad", true},
		{"restauration collective", "restauration", "restauration_collective", true},
		{"plomberie", "", "", false},
		{"", "", "", false},
	}

	for _, tc := range cases {
		sector, subsector, ok := Canonical(tc.hint)
		if ok != tc.wantOK || sector != tc.wantSector || subsector != tc.wantSubsector {
			t.Errorf("Canonical(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.hint, sector, subsector, ok, tc.wantSector, tc.wantSubsector, tc.wantOK)
		}
	}
}
