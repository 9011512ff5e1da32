// Package file provides the TOML-backed configuration store.
//
// Values live in ~/.quasar/config.toml as nested tables and are addressed by
// flattened dot keys ("embedding.provider"). Environment variables named
// QUASAR_<KEY> (dots become underscores, upper case) override file values at
// read time and are never written back. A .env file in the config directory or
// the working directory is loaded into the environment first.
package file
