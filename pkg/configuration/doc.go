// Package configuration implements a layered key/value configuration store.
//
// Sources (settings files, .env files, environment variables, in-memory
// values, remote secrets) are registered on a Builder in order. Each
// source builds a Provider whose Load fills a flat, case-insensitive map.
// The Builder merges the providers in registration order, so the source
// registered last wins for any key it defines.
//
// Keys are hierarchical and use ':' as separator:
//
//	Vault:Mode
//	ConnectionStrings:DefaultConnection
//
// Path separators ('/') are normalized to ':' on the way in, and
// environment variables may use '__' for the same purpose:
//
//	Vault__Mode=Vault   ->  Vault:Mode
//
// The resulting Store is safe for concurrent reads.
package configuration
