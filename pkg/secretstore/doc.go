// Package secretstore defines the contract between the configuration
// pipeline and the secret management systems it reads from.
//
// A Backend authenticates against one secret store (HashiCorp Vault, AWS
// Secrets Manager, AWS SSM Parameter Store, GCP Secret Manager, Azure Key
// Vault or Akeyless) and reads the latest version of a single secret
// bundle: a flat or nested key/value object stored at a mount and path.
//
// # Implementing a Backend
//
//	type MyBackend struct{ client MyClient }
//
//	func (b *MyBackend) Name() string { return "my-store" }
//
//	func (b *MyBackend) Authenticate(ctx context.Context) error {
//	    return b.client.Login(ctx)
//	}
//
//	func (b *MyBackend) Read(ctx context.Context, loc secretstore.Location) (secretstore.Bundle, error) {
//	    return b.client.Get(ctx, loc.Mount, loc.Path)
//	}
//
// Backends do not retry. Retry, timeouts and error classification are
// applied by the caller once per attempt, so a Backend should make exactly
// one round trip per call and wrap failures with the error kinds from the
// errors package of this module.
//
// # Values
//
// Bundle values keep whatever type the store decoded (string, number,
// bool, nested object). StringValue converts them to the flat string form
// used by configuration lookups.
package secretstore
