// Package config supplies the tool defaults and loads optional overrides
// from a YAML file. Command-line flags always win over configured values;
// the file only moves the defaults.
package config
