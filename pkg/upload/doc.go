// Package upload implements the template upload form controller: the local
// state of the form, the user list it offers, file selection with preview
// references, validation and the multipart submission.
//
// A Controller is created per form, mounted once, mutated by field setters and
// file handlers, submitted any number of times, and torn down when the form
// goes away. Every outcome is reported through a notify.Notifier; Submit also
// returns a typed error so callers can branch on it.
package upload
