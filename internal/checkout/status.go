package checkout

import (
	"errors"
	"sort"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// PendingStatusNames lists the labels admins use for the initial workflow
// state, most preferred first.
var PendingStatusNames = []string{
	"pending",
	"chờ xác nhận",
	"chờ xử lý",
	"awaiting confirmation",
	"new",
}

var ErrNoOrderStatuses = errors.New("no order statuses defined")

// ResolveInitialStatus picks the status matching the earliest name in
// PendingStatusNames. When none matches it falls back to the first status by
// sort order and reports fallback=true.
func ResolveInitialStatus(statuses []domain.OrderStatus) (status domain.OrderStatus, fallback bool, err error) {
	if len(statuses) == 0 {
		return domain.OrderStatus{}, false, ErrNoOrderStatuses
	}

	for _, name := range PendingStatusNames {
		for _, s := range statuses {
			if strings.EqualFold(strings.TrimSpace(s.Name), name) {
				return s, false, nil
			}
		}
	}

	ordered := make([]domain.OrderStatus, len(statuses))
	copy(ordered, statuses)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered[0], true, nil
}
