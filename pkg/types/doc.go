// Package types defines the core types and interfaces used throughout cellar.
// This includes the installer manifest model, the environment configuration
// record, and the contracts for the collaborators the installer engine
// drives: the environment manager, the process launcher, and the
// supported-dependency catalog.
package types
