// Package matchers evaluates rule conditions against a file context.
//
// A condition is a list of predicates that must all hold. Evaluation is
// fail-closed: a predicate whose data is missing, or whose value has the
// wrong shape, is false. Unknown predicate keys are ignored so newer rule
// documents keep working with older binaries.
//
// # Predicates
//
//	mimetype            exact, or prefix when the value ends in "/*"
//	ext                 case-insensitive, string or list (any)
//	exif.<field>        equality with a metadata field, list = membership
//	language            exact
//	text.contains_any   case-insensitive substring, any of the list
//	text.contains_all   case-insensitive substring, all of the list
//	filename.contains   case-insensitive substring over the filename
//	filename.matches    doublestar glob over the filename
//	path.matches        doublestar glob over the absolute path
//	size.gt, size.lt    strict byte size comparison
//	created_after       YYYY-MM-DD, creation time on or after the date
//	created_before      YYYY-MM-DD, creation time on or before the date
package matchers
