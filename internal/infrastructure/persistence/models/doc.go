// Package models maps the settlement aggregates onto GORM tables. Domain
// types carry no ORM tags; each model has a ToDomain method and a
// <Name>ModelFromDomain constructor, and repositories only ever hand
// domain values back to callers.
package models
