package course

import (
	"fmt"
	"regexp"
	"strconv"
)

var labNumRe = regexp.MustCompile(`\d+`)

// LabNumber extracts the first numeric run from a raw lab key ("3", "lab3",
// "ЛР3" all yield 3).
func LabNumber(key string) (int, error) {
	m := labNumRe.FindString(key)
	if m == "" {
		return 0, fmt.Errorf("lab key %q has no number", key)
	}
	return strconv.Atoi(m)
}

// NormalizeLabKey maps a raw lab key onto the canonical sheet header form
// ЛР{n} used for column lookup.
func NormalizeLabKey(key string) (string, error) {
	n, err := LabNumber(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ЛР%d", n), nil
}
