// Package library implements the client-side data layer: forward-only paginated
// lists, debounced search input and a keyed query cache with prefix invalidation.
//
// A [Pager] accumulates pages for one key (search term and page size). Changing
// the term starts over from page 1 and any page that arrives for an older key is
// dropped. A [Debouncer] turns keystrokes into committed terms after a quiet period.
// [Library] ties both to the proxy client and invalidates cached reads after
// successful mutations.
package library
