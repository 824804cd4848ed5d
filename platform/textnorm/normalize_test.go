package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Novotel Bron", "novotelbron"},
		{"Novotel de Bron", "novotelbron"},
		{"NOVOTEL  DE  BRON", "novotelbron"},
		{"L'Étoile du Nord", "etoilenord"},
		{"Café-Restaurant LE PARIS", "caferestaurantparis"},
		{"Hôtel des Alpes", "hotelalpes"},
		{"  Ibis Budget 2  ", "ibisbudget2"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Novotel de Bron", "L'Étoile du Nord", "Hôtel des Alpes"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestStripAccents(t *testing.T) {
	if got := StripAccents("après-demain à l'Hôtel"); got != "apres-demain a l'Hotel" {
		t.Errorf("StripAccents = %q", got)
	}
}
