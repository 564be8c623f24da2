package client

import (
	"net/url"

	"taskhub/internal/models"
)

// EncodeFilter shapes a filter descriptor into the query consumed by the
// task listing endpoint. Dimensions are conjunctive: a task must satisfy
// every present dimension. Values within a dimension are disjunctive: a task
// matches when its status (or priority) is any member of the requested set.
// An absent dimension imposes no constraint. The engine performs no network
// I/O.
func EncodeFilter(f models.TaskFilter) url.Values {
	if f.IsZero() {
		return nil
	}

	values := url.Values{}
	for _, status := range f.Statuses {
		values.Add("status", status)
	}
	for _, priority := range f.Priorities {
		values.Add("priority", priority)
	}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	return values
}
