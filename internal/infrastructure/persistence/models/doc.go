// Package models contains the GORM persistence models for warehouse snapshots.
//
// A snapshot is a relational copy of one successfully loaded warehouse. Rows carry
// a Position so that restores replay registrations in their original order. The
// domain types never carry GORM tags; mappers in this package convert between them.
package models
