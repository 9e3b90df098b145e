package ragtypes

import "regexp"

// chunkIDPattern matches the SFS chunk id grammar:
//   sfs_<year>_<num>_<kap?><letter?>kap_<par>§_<12-hex-hash>
var chunkIDPattern = regexp.MustCompile(
	`^sfs_(\d{4})_(\d+)_(?:(\d+)([a-z]?)kap_)?(\d+[a-z]?)§_([0-9a-f]{12})$`,
)

// ParentIDFromChunkID maps a child chunk id deterministically to its
// parent id, per the §3 grammar:
//   <year>:<num>_<kap?><letter?>_kap   when a kapitel is present
//   <year>:<num>_root                  otherwise
// Returns "" if chunkID does not match the grammar.
func ParentIDFromChunkID(chunkID string) string {
	m := chunkIDPattern.FindStringSubmatch(chunkID)
	if m == nil {
		return ""
	}
	year, num, kap, letter := m[1], m[2], m[3], m[4]
	if kap == "" {
		return year + ":" + num + "_root"
	}
	return year + ":" + num + "_" + kap + letter + "_kap"
}
