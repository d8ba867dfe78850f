// Package hcl_adapter loads the server configuration from HCL files.
//
// Every .hcl file found under the given paths is decoded and overlaid onto
// config.Default in path order, so a directory can split the configuration
// across several files. Attributes may call env("NAME") to read environment
// variables, which is how secrets such as the API key are supplied.
package hcl_adapter
