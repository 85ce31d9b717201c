package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery composes the query to NFC and collapses whitespace so that
// visually identical queries reach the upstream byte-identical.
func NormalizeQuery(raw string) string {
	return strings.Join(strings.Fields(norm.NFC.String(raw)), " ")
}
