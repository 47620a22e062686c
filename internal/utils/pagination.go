package utils

import "github.com/gofiber/fiber/v2"

// List endpoints page with ?page= and ?limit=. The limit is capped so an
// operator query cannot pull unbounded rows.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a validated page request.
type Page struct {
	Number int
	Size   int
}

// PageFromQuery reads the page and limit query parameters, falling back
// to page 1 and the default size on anything unparseable or out of range.
func PageFromQuery(c *fiber.Ctx) Page {
	number := c.QueryInt("page", 1)
	if number < 1 {
		number = 1
	}
	size := c.QueryInt("limit", DefaultPageSize)
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset converts the page request to a row offset.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Paginated wraps one page of results in the list envelope.
func Paginated(data interface{}, page Page, total int64) fiber.Map {
	var pages int64
	if total > 0 {
		pages = (total + int64(page.Size) - 1) / int64(page.Size)
	}
	return fiber.Map{
		"data":  data,
		"page":  page.Number,
		"limit": page.Size,
		"total": total,
		"pages": pages,
	}
}
