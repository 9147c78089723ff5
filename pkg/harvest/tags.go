package harvest

import (
	"sort"
	"strings"
)

// tagRules map a derived tag to the needles that trigger it in an item's
// title or body.
var tagRules = map[string][]string{
	"CAF/NIS":     {"nis2", "network and information", "cyber assessment framework"},
	"Cyber":       {"cyber", "malware", "vulnerability", "threat", "phishing"},
	"Incident":    {"incident", "outage", "compromise"},
	"Guidance":    {"guidance", "good practice"},
	"Enforcement": {"enforcement", "compliance case"},
}

// heuristicTags derives topic tags from the text plus the uppercased source
// tag, sorted for stable storage.
func heuristicTags(title, text, sourceTag string) []string {
	blob := strings.ToLower(title + "\n" + text)

	set := make(map[string]struct{})
	for tag, needles := range tagRules {
		for _, n := range needles {
			if strings.Contains(blob, n) {
				set[tag] = struct{}{}
				break
			}
		}
	}
	if sourceTag != "" {
		set[strings.ToUpper(sourceTag)] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
