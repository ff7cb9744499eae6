package guests

import (
	"context"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/rs/zerolog"
)

// QueryStats summarises a paginated run. Count is the number of records
// handed to the consumer; partial progress is kept when a page fails.
type QueryStats struct {
	Count          int
	PartialFailure bool
	Cause          error
	// Total is the server-side match count when the service reported one,
	// otherwise -1.
	Total int64
}

// QueryRunner streams the pages of a filtered user query to a consumer.
// Pages are fetched strictly in sequence.
type QueryRunner struct {
	client   directory.Client
	pageSize int
}

func NewQueryRunner(client directory.Client, pageSize int) *QueryRunner {
	if pageSize <= 0 || pageSize > directory.MaxPageSize {
		pageSize = directory.MaxPageSize
	}
	return &QueryRunner{client: client, pageSize: pageSize}
}

// RunFiltered issues the query and calls consume once per record, in order.
// Iteration stops when consume returns false, when a page cannot be
// retrieved, or when ctx is cancelled between pages. The last two set
// PartialFailure and keep the records consumed so far.
func (r *QueryRunner) RunFiltered(
	ctx context.Context,
	filter string,
	fields []string,
	consume func(domain.User) bool,
) QueryStats {
	logger := zerolog.Ctx(ctx)
	stats := QueryStats{Total: -1}

	page, err := r.client.QueryUsers(ctx, directory.UserQuery{
		Filter:   filter,
		Fields:   fields,
		PageSize: r.pageSize,
		Count:    true,
	})
	if err != nil {
		return r.fail(ctx, stats, err)
	}
	if total, ok := page.TotalCount(); ok {
		stats.Total = total
		logger.Debug().Int64("total", total).Msgf("total of %d objects", total)
	}

	for {
		for _, u := range page.Values() {
			stats.Count++
			if !consume(u) {
				return stats
			}
		}

		if !page.HasNext() {
			return stats
		}
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, stats, err)
		}

		page, err = page.Next(ctx)
		if err != nil {
			return r.fail(ctx, stats, err)
		}
	}
}

func (r *QueryRunner) fail(ctx context.Context, stats QueryStats, err error) QueryStats {
	stats.PartialFailure = true
	stats.Cause = directory.Wrap("query users", err)

	failureType := "completely"
	if stats.Count > 0 {
		failureType = "partially"
	}
	zerolog.Ctx(ctx).Warn().
		Err(stats.Cause).
		Int("count", stats.Count).
		Msgf("retrieval %s failed with %d users", failureType, stats.Count)
	return stats
}
