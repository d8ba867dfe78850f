// Package feed builds the display sequence shown by the Preview stage: an
// ordered run of sourced content posts with the generated creative inserted
// at a fixed interval.
//
// Merge is a pure function. Source implementations load the content posts
// from a newline-delimited JSON document, and Cache makes sure each Preview
// activation fetches them only once.
package feed
