// Package app wires the pieces of the bluegraph CLI together: configuration,
// logging, the function registry, the pipeline loader and the engine run
// itself, decoupled from any specific entrypoint.
package app
