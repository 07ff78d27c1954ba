// ABOUTME: Product/version constants for the BetterClock client
// ABOUTME: Identity strings of this client library (version, product name, publisher)
package version

// Version is the client library version, bumped on release.
const Version = "0.1.0"

// Product is the human-readable client product name.
const Product = "BetterClock Go Client"

// Manufacturer identifies the publisher of this client.
const Manufacturer = "BetterClock"
