package project

// SourceFile is a module discovered under a project root.
type SourceFile struct {
	// Path is slash-separated and relative to the project root.
	Path string `json:"path"`
	// ID is the absolute path the rewriter sees as the module identifier.
	ID string `json:"id"`
}
