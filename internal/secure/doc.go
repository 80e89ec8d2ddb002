// Package secure holds credentials in memory protected by memguard.
//
// The secret identifier used to authenticate against the secret store is
// kept in an encrypted enclave between fetch attempts and only decrypted
// for the duration of a login call:
//
//	cred := secure.NewCredential(secretID)
//	defer cred.Destroy()
//
//	err := cred.Use(func(plain string) error {
//	    return login(ctx, roleID, plain)
//	})
//
// # Security Guarantees
//
//   - Core dumps will not contain the plaintext credential
//   - The plaintext is wiped as soon as Use returns
//
// It does NOT protect against an attacker with access to the running
// process, or against copies the callback makes itself.
package secure
