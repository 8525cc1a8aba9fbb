// Package paginate drives the sequential cursor traversal over a paginated
// listing endpoint.
//
// The server's continuation URL is an opaque reference that depends on the
// previous page, so pages are fetched strictly one after another. The driver
// accumulates records across pages, reports progress to an injected observer,
// and guards against continuation loops by failing when a reference repeats.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(apiKey))
//	driver := paginate.NewDriver(c, nil)
//	result, err := driver.FetchAll(ctx, listURL)
//	if result.Outcome == paginate.OutcomeDone {
//		// result.Records holds the complete listing
//	}
package paginate
