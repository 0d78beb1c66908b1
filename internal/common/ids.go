// internal/common/ids.go
package common

import "strconv"

// ConformerKey names the conformer of id at 0-based file position n, as
// overlay tools label multi-conformer queries: "3kPZS_2".
func ConformerKey(id string, n int) string {
	return id + "_" + strconv.Itoa(n)
}
