// Package pagination walks a paginated collection to materialize a bulk
// selection of the first N distinct items.
//
// Pages are fetched strictly one at a time, in order, each request waiting
// for the previous response. The walk stops as soon as N distinct ids have
// been seen, when the source reports no pagination metadata, or when the last
// reported page has been scanned, so asking for more items than exist
// terminates at source exhaustion.
//
// Example usage:
//
//	tracker := selection.NewTracker()
//	bulk := pagination.NewBulkSelector(apiClient, tracker, pagination.DefaultConfig())
//	set, err := bulk.SelectFirstN(ctx, 250)
//
// SelectFirstN replaces the tracker's selection only after the walk completes.
// A cancelled context or a failed fetch aborts the walk and leaves the
// previous selection in place.
package pagination
