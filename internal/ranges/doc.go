// Package ranges parses user range specifications of the form
// "[title,]HH:MM:SS -> HH:MM:SS" into validated TimeRange values, derives
// filesystem-safe titles, and enforces title uniqueness across a batch.
package ranges
