package cart

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ItemKey derives the stable line key from the product identity and chosen options.
// Quantity never participates, so adding the same configuration twice lands on one line.
func ItemKey(productID, variationID int64, variation, extraData map[string]string) string {
	parts := []string{strconv.FormatInt(productID, 10)}
	if variationID > 0 || len(variation) > 0 || len(extraData) > 0 {
		parts = append(parts, strconv.FormatInt(variationID, 10))
	}
	if len(variation) > 0 || len(extraData) > 0 {
		parts = append(parts, joinSorted(variation))
	}
	if len(extraData) > 0 {
		parts = append(parts, joinSorted(extraData))
	}

	sum := md5.Sum([]byte(strings.Join(parts, "_")))
	return hex.EncodeToString(sum[:])
}

func joinSorted(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(strings.TrimSpace(k))
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(m[k]))
	}
	return b.String()
}

// FeeID turns a fee name into its id: lower case, runs of anything that is not a letter
// or digit collapsed to a single dash.
func FeeID(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
