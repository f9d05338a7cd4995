// Package model defines the data types shared by the submission engine:
// the case identity, the immutable submission task and the structured
// case detail captured at decision time.
package model
