package geo

import (
	"sort"
	"strings"
)

// Centroid is a representative coordinate pair for a named place.
type Centroid struct {
	Lat float64
	Lon float64
}

// centroids maps lowercase country names to approximate centroids.
// Loaded once at process start; never mutated at runtime.
var centroids = map[string]Centroid{
	"afghanistan":                      {33.94, 67.71},
	"albania":                          {41.15, 20.17},
	"algeria":                          {28.03, 1.66},
	"angola":                           {-11.20, 17.87},
	"argentina":                        {-38.42, -63.62},
	"armenia":                          {40.07, 45.04},
	"australia":                        {-25.27, 133.78},
	"austria":                          {47.52, 14.55},
	"azerbaijan":                       {40.14, 47.58},
	"bangladesh":                       {23.68, 90.36},
	"belarus":                          {53.71, 27.95},
	"belgium":                          {50.50, 4.47},
	"bolivia":                          {-16.29, -63.59},
	"bosnia and herzegovina":           {43.92, 17.68},
	"brazil":                           {-14.24, -51.93},
	"bulgaria":                         {42.73, 25.49},
	"burkina faso":                     {12.24, -1.56},
	"burundi":                          {-3.37, 29.92},
	"cambodia":                         {12.57, 104.99},
	"cameroon":                         {7.37, 12.35},
	"canada":                           {56.13, -106.35},
	"central african republic":         {6.61, 20.94},
	"chad":                             {15.45, 18.73},
	"chile":                            {-35.68, -71.54},
	"china":                            {35.86, 104.20},
	"colombia":                         {4.57, -74.30},
	"costa rica":                       {9.75, -83.75},
	"cuba":                             {21.52, -77.78},
	"democratic republic of the congo": {-4.04, 21.76},
	"denmark":                          {56.26, 9.50},
	"ecuador":                          {-1.83, -78.18},
	"egypt":                            {26.82, 30.80},
	"el salvador":                      {13.79, -88.90},
	"eritrea":                          {15.18, 39.78},
	"ethiopia":                         {9.15, 40.49},
	"finland":                          {61.92, 25.75},
	"france":                           {46.23, 2.21},
	"georgia":                          {42.32, 43.36},
	"germany":                          {51.17, 10.45},
	"ghana":                            {7.95, -1.02},
	"greece":                           {39.07, 21.82},
	"guatemala":                        {15.78, -90.23},
	"guinea":                           {9.95, -9.70},
	"haiti":                            {18.97, -72.29},
	"honduras":                         {15.20, -86.24},
	"hungary":                          {47.16, 19.50},
	"india":                            {20.59, 78.96},
	"indonesia":                        {-0.79, 113.92},
	"iran":                             {32.43, 53.69},
	"iraq":                             {33.22, 43.68},
	"israel":                           {31.05, 34.85},
	"italy":                            {41.87, 12.57},
	"japan":                            {36.20, 138.25},
	"jordan":                           {30.59, 36.24},
	"kazakhstan":                       {48.02, 66.92},
	"kenya":                            {-0.02, 37.91},
	"kuwait":                           {29.31, 47.48},
	"lebanon":                          {33.85, 35.86},
	"liberia":                          {6.43, -9.43},
	"libya":                            {26.34, 17.23},
	"madagascar":                       {-18.77, 46.87},
	"malawi":                           {-13.25, 34.30},
	"malaysia":                         {4.21, 101.98},
	"mali":                             {17.57, -4.00},
	"mauritania":                       {21.01, -10.94},
	"mexico":                           {23.63, -102.55},
	"moldova":                          {47.41, 28.37},
	"mongolia":                         {46.86, 103.85},
	"morocco":                          {31.79, -7.09},
	"mozambique":                       {-18.67, 35.53},
	"myanmar":                          {21.92, 95.96},
	"nepal":                            {28.39, 84.12},
	"netherlands":                      {52.13, 5.29},
	"new zealand":                      {-40.90, 174.89},
	"nicaragua":                        {12.87, -85.21},
	"niger":                            {17.61, 8.08},
	"nigeria":                          {9.08, 8.68},
	"north korea":                      {40.34, 127.51},
	"norway":                           {60.47, 8.47},
	"pakistan":                         {30.38, 69.35},
	"panama":                           {8.54, -80.78},
	"papua new guinea":                 {-6.31, 143.96},
	"paraguay":                         {-23.44, -58.44},
	"peru":                             {-9.19, -75.02},
	"philippines":                      {12.88, 121.77},
	"poland":                           {51.92, 19.15},
	"portugal":                         {39.40, -8.22},
	"qatar":                            {25.35, 51.18},
	"republic of the congo":            {-0.23, 15.83},
	"romania":                          {45.94, 24.97},
	"russia":                           {61.52, 105.32},
	"rwanda":                           {-1.94, 29.87},
	"saudi arabia":                     {23.89, 45.08},
	"senegal":                          {14.50, -14.45},
	"serbia":                           {44.02, 21.01},
	"sierra leone":                     {8.46, -11.78},
	"somalia":                          {5.15, 46.20},
	"south africa":                     {-30.56, 22.94},
	"south korea":                      {35.91, 127.77},
	"south sudan":                      {6.88, 31.31},
	"spain":                            {40.46, -3.75},
	"sri lanka":                        {7.87, 80.77},
	"sudan":                            {12.86, 30.22},
	"sweden":                           {60.13, 18.64},
	"switzerland":                      {46.82, 8.23},
	"syria":                            {34.80, 38.99},
	"taiwan":                           {23.70, 120.96},
	"tajikistan":                       {38.86, 71.28},
	"tanzania":                         {-6.37, 34.89},
	"thailand":                         {15.87, 100.99},
	"tunisia":                          {33.89, 9.54},
	"turkey":                           {38.96, 35.24},
	"turkmenistan":                     {38.97, 59.56},
	"uganda":                           {1.37, 32.29},
	"ukraine":                          {48.38, 31.17},
	"united arab emirates":             {23.42, 53.85},
	"united kingdom":                   {55.38, -3.44},
	"united states":                    {37.09, -95.71},
	"uruguay":                          {-32.52, -55.77},
	"uzbekistan":                       {41.38, 64.59},
	"venezuela":                        {6.42, -66.59},
	"vietnam":                          {14.06, 108.28},
	"yemen":                            {15.55, 48.52},
	"zambia":                           {-13.13, 27.85},
	"zimbabwe":                         {-19.02, 29.15},
}

// aliases maps common upstream spellings to the canonical table key.
var aliases = map[string]string{
	"drc":                          "democratic republic of the congo",
	"dr congo":                     "democratic republic of the congo",
	"congo, democratic republic":   "democratic republic of the congo",
	"congo (kinshasa)":             "democratic republic of the congo",
	"congo":                        "republic of the congo",
	"congo (brazzaville)":          "republic of the congo",
	"usa":                          "united states",
	"us":                           "united states",
	"united states of america":     "united states",
	"uk":                           "united kingdom",
	"great britain":                "united kingdom",
	"uae":                          "united arab emirates",
	"burma":                        "myanmar",
	"republic of korea":            "south korea",
	"korea, south":                 "south korea",
	"dprk":                         "north korea",
	"korea, north":                 "north korea",
	"russian federation":           "russia",
	"syrian arab republic":         "syria",
	"iran, islamic republic of":    "iran",
	"viet nam":                     "vietnam",
	"tanzania, united republic of": "tanzania",
	"turkiye":                      "turkey",
}

// ResolveCountry resolves a country or place name to a centroid.
// Match order: alias table, case-insensitive exact match, then
// case-insensitive substring match in both directions. Returns false
// when nothing matches; callers drop such records rather than storing
// placeholder coordinates.
func ResolveCountry(name string) (Centroid, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Centroid{}, false
	}

	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	if c, ok := centroids[key]; ok {
		return c, true
	}

	// Alphabetical scan so an ambiguous name (e.g. "korea") resolves to
	// the same candidate on every run and records keep a stable id.
	for _, candidate := range centroidNames {
		if strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			return centroids[candidate], true
		}
	}

	return Centroid{}, false
}

var centroidNames = func() []string {
	names := make([]string, 0, len(centroids))
	for name := range centroids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()
