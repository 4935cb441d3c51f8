// Package backup is the composition root of the encrypted backup engine.
// It wires the snapshot codec, the crypto engine, and the restore
// orchestrator into the two operations exposed to callers: exporting the
// live store into an encrypted blob and importing a blob back into the
// store.
//
// Data flow on export:
//
//	Store -> Codec.Encode -> Codec.Serialize -> Engine.Encrypt -> blob
//
// and on import:
//
//	blob -> Engine.Decrypt -> Codec.Deserialize -> Orchestrator.Apply -> Store
//
// The password is treated as an opaque value scoped to a single call; it is
// never logged, cached, or serialized. A wrong password and a tampered blob
// are indistinguishable by construction and are reported as the same
// wrong-password error kind.
//
// Example usage:
//
//	service := backup.NewService(nil)
//
//	blob, err := service.ExportStore(ctx, liveStore, password)
//	if err != nil {
//		return fmt.Errorf("export failed: %w", err)
//	}
//
//	if err := service.ImportBlob(ctx, blob, password, liveStore); err != nil {
//		return fmt.Errorf("import failed: %w", err)
//	}
package backup
