package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads page and limit query parameters with sane bounds.
func pagination(c *gin.Context) (page, limit int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "0"), 10, 64)
	if page < 0 {
		page = 0
	}
	limit = pageLimit(c)
	return page, limit
}

// pageLimit reads the limit query parameter with sane bounds.
func pageLimit(c *gin.Context) int64 {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)), 10, 64)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit
}
