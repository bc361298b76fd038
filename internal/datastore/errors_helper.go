package datastore

import (
	"github.com/DA1F/RoAnalyzer/internal/errors"
)

const componentName = "datastore"

// ErrNotFound matches lookups of recordings that do not exist.
var ErrNotFound = errors.New(nil).Component(componentName).Category(errors.CategoryNotFound).Build()

func dbError(err error, operation string) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

func notFound(id string) error {
	return errors.Newf("recording %s not found", id).
		Component(componentName).
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}

func notOpen(operation string) error {
	return errors.Newf("database connection is not initialized").
		Component(componentName).
		Category(errors.CategoryState).
		Context("operation", operation).
		Build()
}
