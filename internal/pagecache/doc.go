// Package pagecache provides the stale-while-revalidate cache for rendered
// pages.
//
// Entries pass through three windows: fresh (served as-is), stale (served
// while the caller triggers a background re-render), and expired (evicted on
// read). A per-key revalidating flag lets the HTTP layer avoid launching
// duplicate background refreshes. Content mutations clear the cache in bulk,
// optionally scoped by key prefix.
package pagecache
