package secrets

// Store persists the credential record. The store exclusively owns the
// on-disk representation; callers hold an in-memory copy only for the
// duration of one exchange.
type Store interface {
	// Load reads the current record. It fails with ErrMissingSecretsFile
	// when no record exists and ErrMalformedSecrets when required fields
	// are missing.
	Load() (*Record, error)

	// Save replaces the stored record unconditionally (last writer wins).
	Save(record *Record) error
}
