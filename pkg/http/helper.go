package http

import (
	"net/http"
	"strconv"

	"carhive/pkg/config"
	apperrors "carhive/pkg/errors"
)

func ExtractPageLimit(r *http.Request) (int, int, error) {
	query := r.URL.Query()

	page := 1
	if s := query.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		page = v
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	page = config.NormalizePage(page)
	limit = config.NormalizePaginationLimit(limit)

	return page, limit, nil
}
