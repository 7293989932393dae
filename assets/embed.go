package assets

import _ "embed"

// ZonesCSV is the timezone catalogue offered by /tz search.
// One zone per line: identifier;country;city|city|...
//
//go:embed zones.csv
var ZonesCSV string
