// Package conv provides checked integer conversions for snapshot framing.
//
// Block headers store lengths as fixed-width unsigned integers; these helpers
// reject values that would silently wrap when narrowed from Go's int.
package conv
