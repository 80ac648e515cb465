package registry

// SplitGroups partitions lines into consecutive pre-groups. A new group opens
// right before the first non-entry line that follows a group which already
// holds an entry; everything else joins the current group. Every line lands
// in exactly one group and order is preserved.
//
// Parse and Normalize both group through here so that titles and alignment
// always agree on where a group ends.
func SplitGroups(lines []string) [][]string {
	hasEntries := false
	current := []string{}
	groups := [][]string{}

	for _, line := range lines {
		_, isEntry := ParseLine(line)
		if isEntry || !hasEntries {
			if isEntry {
				hasEntries = true
			}
			current = append(current, line)
			continue
		}

		groups = append(groups, current)
		current = []string{line}
		hasEntries = false
	}
	return append(groups, current)
}
