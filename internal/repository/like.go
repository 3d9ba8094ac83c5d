package repository

import "strings"

// likeEscaper escapes the LIKE wildcards with '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern turns s into a plain substring pattern for whereContains.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// whereContains is the query condition for column containing s literally.
func whereContains(column string) string {
	return column + " LIKE ? ESCAPE '!'"
}
