package converter

import "os"

// writeSidecar writes the .avsc JSON schema text alongside an AvroTable
// file (§6: "sidecar .avsc with the JSON schema"). Overwriting is safe:
// the schema for a given (database, table, version) never changes.
func writeSidecar(path, schemaText string) error {
	return os.WriteFile(path, []byte(schemaText), 0o644)
}
