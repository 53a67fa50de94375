// Package transport builds the HTTP clients used to fetch pages.
//
// A client can dial directly or through a SOCKS5 proxy, including the SOCKS
// port of an embedded Tor daemon started with tornago. Every client injects
// per-host cookies and headers from the config file, keeps a cookie jar
// scoped by the public suffix list, and caps redirects.
//
// The package also recognises .onion addresses, so the CLI can warn when
// onion seeds would be fetched without a proxy.
package transport
