package geo

import "strings"

// departmentRegions maps French department codes to their region.
var departmentRegions = map[string]string{}

func init() {
	add := func(region string, depts ...string) {
		for _, d := range depts {
			departmentRegions[d] = region
		}
	}
	add("Auvergne-Rhône-Alpes", "01", "03", "07", "15", "26", "38", "42", "43", "63", "69", "73", "74")
	add("Bourgogne-Franche-Comté", "21", "25", "39", "58", "70", "71", "89", "90")
	add("Bretagne", "22", "29", "35", "56")
	add("Centre-Val de Loire", "18", "28", "36", "37", "41", "45")
	add("Corse", "2A", "2B", "20")
	add("Grand Est", "08", "10", "51", "52", "54", "55", "57", "67", "68", "88")
	add("Hauts-de-France", "02", "59", "60", "62", "80")
	add("Île-de-France", "75", "77", "78", "91", "92", "93", "94", "95")
	add("Normandie", "14", "27", "50", "61", "76")
	add("Nouvelle-Aquitaine", "16", "17", "19", "23", "24", "33", "40", "47", "64", "79", "86", "87")
	add("Occitanie", "09", "11", "12", "30", "31", "32", "34", "46", "48", "65", "66", "81", "82")
	add("Pays de la Loire", "44", "49", "53", "72", "85")
	add("Provence-Alpes-Côte d'Azur", "04", "05", "06", "13", "83", "84")
	add("Guadeloupe", "971")
	add("Martinique", "972")
	add("Guyane", "973")
	add("La Réunion", "974")
	add("Mayotte", "976")
}

// RegionForPostalCode returns the region of a French postal code, or "" when
// the code is not recognised.  Overseas codes use a three digit prefix.
func RegionForPostalCode(code string) string {
	c := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
	if len(c) < 2 {
		return ""
	}
	if strings.HasPrefix(c, "97") && len(c) >= 3 {
		return departmentRegions[c[:3]]
	}
	return departmentRegions[c[:2]]
}
