// Package registry maps the string function identifiers used in pipeline
// files to the compiled blueprint.Func values that implement them. Modules
// register their functions at startup; the pipeline loader resolves every
// `fn` attribute through one Registry instance.
package registry
