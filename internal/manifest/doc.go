// Package manifest exposes read-only access to a project's package.json
// dependency declarations through an explicit store object.
package manifest
