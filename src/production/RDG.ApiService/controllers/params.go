package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	interfaces "gitlab.com/waspcore1/wasp.reading_server/src/production/RDG.Repository/Interfaces"
)

// normalizeReadingQuery builds the validated parameter structure handed to
// the query engine. Invalid inputs never error: limit falls back to the
// configured maximum, offset to 0, sort to ascending and unparseable dates
// are treated as absent.
func normalizeReadingQuery(ctx *gin.Context, maxLimit int) interfaces.ReadingQueryParams {
	return interfaces.ReadingQueryParams{
		Limit:         normalizeLimit(ctx.Query("limit"), maxLimit),
		Offset:        normalizeOffset(ctx.Query("offset")),
		SortAscending: normalizeSort(ctx.Query("sortByTimestamp")),
		From:          normalizeDate(ctx.Query("startDate")),
		To:            normalizeDate(ctx.Query("endDate")),
	}
}

func normalizeLimit(raw string, maxLimit int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 || value > maxLimit {
		return maxLimit
	}
	return value
}

func normalizeOffset(raw string) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

// normalizeSort returns true for ascending order. Only "DESC"
// (case-insensitive) selects descending; anything else is ascending.
func normalizeSort(raw string) bool {
	return !strings.EqualFold(raw, "DESC")
}

func normalizeDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &parsed
}
