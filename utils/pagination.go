package utils

const pageSizeDefault = 20
const pageSizeMax = 100

// GetPaginationParams resolves a 1-based page and a page size into an offset and limit.
// Missing or non-positive values fall back to the first page and the default size; the size is capped.
func GetPaginationParams(page *int, size *int) (offset int, limit int) {
	finalPage := 1
	finalSize := pageSizeDefault

	if page != nil && *page > 0 {
		finalPage = *page
	}

	if size != nil && *size > 0 {
		finalSize = min(*size, pageSizeMax)
	}

	return (finalPage - 1) * finalSize, finalSize
}

// PageFromOffset converts an offset and limit back into the 1-based page number reported to callers.
func PageFromOffset(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
