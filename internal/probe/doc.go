// Package probe defines the reachability check the registry runs against
// each service endpoint. The registry depends on the Prober interface only;
// the HTTP implementation is one possible transport.
package probe
