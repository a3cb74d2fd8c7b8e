// Package asuswrt is a minimal client for the ASUS-WRT router web
// interface, covering just what presence tracking needs: authentication
// and the connected-client list.
//
// The firmware's JSON is famously inconsistent between versions and
// between standalone and AiMesh deployments. Decoding here is therefore
// deliberately tolerant (see RawClient); reconciling the variants into a
// single truth is the presence package's job.
package asuswrt
