// Package templates renders the HTML fragments HTMX swaps into the editor:
// error alerts and global search results.
//
// Components are written in .templ files; run `templ generate` after
// editing them.
package templates
