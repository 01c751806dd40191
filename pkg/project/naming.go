package project

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	reservedChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
	leadingNumberRE = regexp.MustCompile(`^(\d+)`)
)

// NormalizeFilename makes a name safe for the project tree: filesystem
// reserved characters become underscores, runs collapse, and surrounding
// space and underscores are stripped. Normalizing twice is a no-op.
func NormalizeFilename(name string) string {
	s := reservedChars.ReplaceAllString(name, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "_")
	return s
}

// Slug restricts a title to Unicode letters, digits, underscore and hyphen,
// with whitespace collapsed to single underscores. Used for project folder
// names, where the naming convention is NNN_<slug>.
func Slug(title string) string {
	title = NormalizeFilename(title)
	var b strings.Builder
	space := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			if space && b.Len() > 0 {
				b.WriteByte('_')
			}
			space = false
			b.WriteRune(r)
		default:
			// dropped
		}
	}
	return strings.Trim(underscoreRuns.ReplaceAllString(b.String(), "_"), "_")
}

// ProjectFolderName formats the canonical NNN_<slug> directory name.
func ProjectFolderName(number int, title string) string {
	return fmt.Sprintf("%03d_%s", number, Slug(title))
}

// LeadingNumber parses the NNN prefix of a project folder name.
// Returns 0 when the name has no leading integer.
func LeadingNumber(name string) int {
	m := leadingNumberRE.FindString(name)
	if m == "" {
		return 0
	}
	var n int
	fmt.Sscanf(m, "%d", &n)
	return n
}

// CharacterFilename derives the profile filename for a character name.
func CharacterFilename(name string) string {
	return NormalizeFilename(name) + "_profile.json"
}
