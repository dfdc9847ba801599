// Package parser turns the raw dictionary document into a generic entry list.
//
// The raw text is first sanitized (see Sanitize), then parsed with a strict
// XML decoder into an xmlquery tree. The entries are the elements at
// /<root>/<entry>, each converted with the following convention:
//
//   - an element holding only text becomes a Text (an empty element is "")
//   - any other element becomes an *Element: "$" maps to its attributes,
//     each child name maps to the list of its values in document order,
//     and "_" holds the non-whitespace character data mixed in
//
// EntryList serializes to compact JSON that keeps key order and does not
// HTML-escape, e.g. [{"ent_seq":["1000000"]}].
package parser
