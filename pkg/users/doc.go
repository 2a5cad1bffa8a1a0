// Package users loads the list of users a template can be uploaded for and
// normalises the loosely shaped API payload into SelectableUser values.
package users
