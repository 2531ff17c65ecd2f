package pipeline

import (
	"math"
	"strconv"
	"strings"

	"docquery/internal/globalconst"
)

// Paginate reads "page" and "size" and sets the result window.
// Absent, non-numeric or non-positive values fall back to the defaults.
func Paginate(params RawParams, spec Spec) Spec {
	page := positiveIntOr(params[globalconst.ParamPage], globalconst.DefaultPage)
	size := positiveIntOr(params[globalconst.ParamSize], globalconst.DefaultPageSize)

	skip := math.MaxInt
	if page-1 <= math.MaxInt/size {
		skip = (page - 1) * size
	}

	out := spec
	out.Window = Window{Limit: size, Skip: skip}
	return out
}

func positiveIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
