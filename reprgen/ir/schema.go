package ir

// Schema is everything a provider extracted from one Go package.
type Schema struct {
	// Package is the source Go package information.
	Package PackageInfo

	// Structs holds the definitions to generate, in source order.
	Structs []*StructDescriptor

	// Diagnostics holds per-struct failures found during extraction.
	// A struct with a diagnostic does not appear in Structs.
	Diagnostics []*GenerationError

	// Warnings contains non-fatal issues encountered during extraction.
	Warnings []Warning
}

// AddStruct adds a struct descriptor to the schema.
func (s *Schema) AddStruct(d *StructDescriptor) {
	s.Structs = append(s.Structs, d)
}

// AddDiagnostic records a failure for one struct.
func (s *Schema) AddDiagnostic(e *GenerationError) {
	s.Diagnostics = append(s.Diagnostics, e)
}

// AddWarning adds a warning to the schema.
func (s *Schema) AddWarning(w Warning) {
	s.Warnings = append(s.Warnings, w)
}

// FindStruct looks up a struct by identifier. Returns nil if not found.
func (s *Schema) FindStruct(name GoIdentifier) *StructDescriptor {
	for _, d := range s.Structs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Generated reports whether id names a struct that this schema will
// generate a Represent method for.
func (s *Schema) Generated(id GoIdentifier) bool {
	return s.FindStruct(id) != nil
}
