package bootstrap

// VaultSettingsSchema constrains the "Vault" section of appsettings.json.
// Numbers and booleans may also be written as strings.
const VaultSettingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "Vault": {
      "type": "object",
      "properties": {
        "Mode":            { "type": "string" },
        "Backend":         { "type": "string" },
        "Url":             { "type": "string" },
        "Address":         { "type": "string" },
        "RoleId":          { "type": "string" },
        "SecretId":        { "type": "string" },
        "Path":            { "type": "string" },
        "MountPoint":      { "type": "string" },
        "Namespace":       { "type": "string" },
        "Region":          { "type": "string" },
        "KeyringService":  { "type": "string" },
        "ExpectedSecrets": { "type": ["array", "string"], "items": { "type": "string" } },
        "MaxAttempts":     { "type": ["integer", "string"] },
        "InitialBackoff":  { "type": "string" },
        "AttemptTimeout":  { "type": "string" },
        "AllowEmpty":      { "type": ["boolean", "string"] }
      }
    }
  }
}`
