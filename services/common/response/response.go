package response

import (
	"github.com/gin-gonic/gin"
)

// Pagination describes one page of a list endpoint.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// OK writes the success envelope.
func OK(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
		"message": message,
	})
}

// Page writes a list under key together with its pagination block.
func Page(c *gin.Context, status int, key string, items interface{}, p Pagination, message string) {
	OK(c, status, gin.H{
		key:          items,
		"pagination": p,
	}, message)
}
