// Package model defines the data structures shared by the orchestration layers.
package model

// Path represents a file system path.
type Path string

// File represents a source code file.
type File struct {
	ShortPath Path
	FullPath  Path
}

// Module is a Go source file selected for mutation. Name is the slash
// separated path relative to the project root and is what work items refer to.
type Module struct {
	Name   string
	Origin *File
}
