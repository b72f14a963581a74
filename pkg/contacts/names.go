package contacts

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/agentstation/casesync/pkg/constants"
)

// nicknameRoots maps a first-name prefix to the search alternates used for
// it: the root itself plus the initial of its common equivalent.
var nicknameRoots = []struct {
	root       string
	alternates []string
}{
	{"bob", []string{"bob", "r"}},
	{"rob", []string{"rob", "b"}},
	{"will", []string{"will", "b"}},
	{"bill", []string{"bill", "w"}},
}

// FirstNameAlternates returns the case-folded first-name prefixes to search
// for. Known nickname roots expand to the root and the initial of the
// equivalent name; any other name searches by its first letter only.
func FirstNameAlternates(first string) []string {
	folded := cases.Fold().String(strings.TrimSpace(first))
	if folded == "" {
		return nil
	}
	for _, n := range nicknameRoots {
		if strings.HasPrefix(folded, n.root) {
			return append([]string(nil), n.alternates...)
		}
	}
	r, _ := utf8.DecodeRuneInString(folded)
	return []string{string(r)}
}

// LastNamePrefix returns the leading characters of a last name used to
// tolerate truncation and suffix variation.
func LastNamePrefix(last string) string {
	last = strings.TrimSpace(last)
	runes := []rune(last)
	if len(runes) > constants.LastNamePrefixLength {
		runes = runes[:constants.LastNamePrefixLength]
	}
	return string(runes)
}
