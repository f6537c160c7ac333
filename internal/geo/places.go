package geo

import (
	"math/rand"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/campus-carpool/internal/models"
)

// Place is an entry of the known-places table.
type Place struct {
	Key     string
	Lat     float64
	Lng     float64
	Address string
}

// KnownPlaces is searched in order; earlier entries win on ambiguous input.
var KnownPlaces = []Place{
	{"denton", 33.2148, -97.1331, "1155 Union Cir, Denton, TX 76203"},
	{"unt", 33.2075, -97.1526, "1155 Union Cir, Denton, TX 76203"},
	{"irving", 32.8140, -96.9489, "3333 N MacArthur Blvd, Irving, TX 75062"},
	{"arlington", 32.7357, -97.1081, "701 S Nedderman Dr, Arlington, TX 76019"},
	{"uta", 32.7292, -97.1152, "701 S Nedderman Dr, Arlington, TX 76019"},
	{"dallas", 32.7767, -96.7970, "1 Main St, Dallas, TX 75202"},
	{"fort worth", 32.7555, -97.3308, "200 W Belknap St, Fort Worth, TX 76102"},
	{"plano", 33.0198, -96.6989, "5908 Headquarters Dr, Plano, TX 75024"},
	{"richardson", 32.9483, -96.7299, "800 W Campbell Rd, Richardson, TX 75080"},
	{"utd", 32.9856, -96.7502, "800 W Campbell Rd, Richardson, TX 75080"},
	{"frisco", 33.1507, -96.8236, "9100 Dallas Pkwy, Frisco, TX 75034"},
	{"euless", 32.8370, -97.0819, "201 N Ector Dr, Euless, TX 76039"},
	{"bedford", 32.8440, -97.1431, "2000 Forest Ridge Dr, Bedford, TX 76021"},
	{"grapevine", 32.9342, -97.0781, "3000 Grapevine Mills Pkwy, Grapevine, TX 76051"},
	{"carrollton", 32.9756, -96.8900, "1945 E Jackson Rd, Carrollton, TX 75006"},
	{"lewisville", 33.0462, -96.9942, "2501 S Valley Pkwy, Lewisville, TX 75067"},
	{"coppell", 32.9546, -97.0150, "255 Parkway Blvd, Coppell, TX 75019"},
	{"flower mound", 33.0146, -97.0970, "2121 Cross Timbers Rd, Flower Mound, TX 75028"},
	{"mckinney", 33.1972, -96.6398, "111 N Tennessee St, McKinney, TX 75069"},
	{"allen", 33.1032, -96.6706, "300 Watters Rd, Allen, TX 75013"},
}

// Resolver maps free-text place names to locations. It never fails: unknown
// names get a synthesized point near the fallback origin.
type Resolver struct {
	Places []Place
	Rand   func() float64 // [0,1); defaults to math/rand
}

func NewResolver() *Resolver {
	return &Resolver{Places: KnownPlaces}
}

func (r *Resolver) Resolve(name string, fallbackOrigin models.Coord) models.Location {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.places() {
		if strings.Contains(key, p.Key) || strings.Contains(p.Key, key) {
			return models.Location{Name: capitalize(name), Address: p.Address, Lat: p.Lat, Lng: p.Lng}
		}
	}
	rnd := r.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	latOffset := (rnd() - 0.5) * 0.1
	lngOffset := (rnd() - 0.5) * 0.1
	return models.Location{
		Name:    name,
		Address: "Near " + name + ", TX",
		Lat:     fallbackOrigin.Lat + latOffset,
		Lng:     fallbackOrigin.Lng + lngOffset,
	}
}

// Suggest returns up to limit known places whose key or address contains
// the input. Inputs shorter than two characters yield nothing.
func (r *Resolver) Suggest(input string, limit int) []models.Location {
	q := strings.ToLower(strings.TrimSpace(input))
	if utf8.RuneCountInString(q) < 2 {
		return nil
	}
	var out []models.Location
	for _, p := range r.places() {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(p.Key, q) || strings.Contains(strings.ToLower(p.Address), q) {
			out = append(out, models.Location{Name: capitalize(p.Key), Address: p.Address, Lat: p.Lat, Lng: p.Lng})
		}
	}
	return out
}

func (r *Resolver) places() []Place {
	if r.Places == nil {
		return KnownPlaces
	}
	return r.Places
}

func capitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}
