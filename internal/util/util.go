package util

import "strings"

// MakeTextList renders items as a human-readable list: "a", "a and b", or
// "a, b, and c" with an Oxford comma once there are three or more.
func MakeTextList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}

	var sb strings.Builder
	for _, item := range items[:len(items)-1] {
		sb.WriteString(item)
		sb.WriteString(", ")
	}
	sb.WriteString("and ")
	sb.WriteString(items[len(items)-1])
	return sb.String()
}
