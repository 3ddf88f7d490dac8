// Package repository defines the persistence models and interfaces of the
// application. Implementations live under internal/store.
package repository
