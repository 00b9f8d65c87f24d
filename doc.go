// Package cloudruntimes defines the shared vocabulary of the Cloud Runtimes
// SDK: the coded error taxonomy used by the client, the sidecar daemon and
// every capability namespace.
//
// The client entry point lives in the client package; capability interfaces
// live under runtimes/.
package cloudruntimes
