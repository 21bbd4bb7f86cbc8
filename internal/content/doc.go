// Package content converts channel message text into the markup written to
// post bodies. Two inputs are supported: the HTML rendered by the live message
// source and the flat entity lists found in channel exports.
//
// Everything in this package is pure; callers own all I/O.
package content
