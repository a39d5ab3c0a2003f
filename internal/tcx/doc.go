// package tcx parses and validates Training Center XML workout artifacts.
//
// Validation is pure and offline: it never touches the network, so it can be
// re-run against previously fetched artifacts for diagnosis.
package tcx
