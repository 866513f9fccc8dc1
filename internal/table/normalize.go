package table

import "strings"

// Normalize returns rows in which every required column exists. Missing
// cells become "", cells holding only whitespace are emptied and extra
// columns are kept. Normalizing an already normalized table is a no-op.
func Normalize(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		n := make(Row, len(Columns))
		for k, v := range r {
			n[k] = normalizeCell(v)
		}
		for _, c := range Columns {
			if _, ok := n[c]; !ok {
				n[c] = ""
			}
		}
		out = append(out, n)
	}
	return out
}

func normalizeCell(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}
