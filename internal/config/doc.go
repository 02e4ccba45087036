// Package config loads and validates the wasdeploy configuration.
//
// Configuration is read from a single YAML file (wasdeploy.yaml by default)
// or, when the file name ends in .toml, a TOML file. Values missing from the
// file keep the defaults declared in the struct tags of Config; a few
// defaults depend on the selected Kind and are applied after loading.
//
// # Kinds
//
//   - liberty-managed: launches or attaches to a local Liberty server under server.wlpHome
//   - liberty-remote: talks to a running Liberty server through its REST connector
//   - was-remote: talks to a WebSphere traditional server through its SOAP connector
//
// # Example
//
//	kind: liberty-managed
//	server:
//	  name: defaultServer
//	  wlpHome: /opt/wlp
//	timeouts:
//	  serverStart: 60
//	deploy:
//	  type: xml
//	  sharedLib: testLib
//
// Validation failures are returned as a ConfigurationError whose Err is a
// ValidationErrors collection naming every offending field.
package config
