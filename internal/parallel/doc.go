// Package parallel runs named jobs with bounded concurrency and collects
// their results in submission order.
package parallel
