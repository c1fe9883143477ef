package graphmail

import (
	"fmt"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
)

// filterTimeLayout renders OData datetime literals in UTC.
const filterTimeLayout = "2006-01-02T15:04:05Z"

// BuildFilter builds the OData $filter expression for a fetch.
//
// A caller-provided raw filter always wins. A since timestamp narrows
// the default unread-only filter. Otherwise unread-only applies.
func BuildFilter(criteria domain.FetchCriteria) string {
	if criteria.RawFilter != "" {
		return criteria.RawFilter
	}
	if !criteria.Since.IsZero() {
		return fmt.Sprintf("isRead eq false and receivedDateTime ge %s",
			criteria.Since.UTC().Format(filterTimeLayout))
	}
	return "isRead eq false"
}
