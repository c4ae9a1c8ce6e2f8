// Package stages provides the five business stage functions of the document
// pipeline: planning, research, draft, formatting, and review. Each
// constructor closes over a collaborator client and returns a stage.Func;
// the adapter and the workflow graph take it from there.
package stages
