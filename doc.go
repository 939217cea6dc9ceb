// Package clientflow is the schema and parameter-binding engine behind
// server-driven client flows.
//
// - deep: addressing into JSON-like values (Extract/Set/Copy, pretty paths)
// - oas: OpenAPI 3.0.3 schema walking, authoring checks and value/schema resolution
// - flows: variable parameter bindings, trigger-time transformations, screen input
// production and safety analysis
// - touchpoint: soundness checks for notification templates against event schemas
//
// Design policy:
// - Keep only the shared error model in the root package; each concern lives in its own package.
// - Schemas and values are plain map[string]any / []any trees; nothing is mutated in place
// unless the function says so.
// - Authoring defects are reported as Issues carrying a pretty path ($.a.b[0]).
//
// Typical usage:
//
//	if err := oas.CheckSchema(screenSchema, oas.CheckOptions{}); err != nil {
//		iss, _ := clientflow.AsIssues(err)
//		...
//	}
//
//	res, err := transformer.HandleTriggerTimeTransformations(ctx, flow, flowScreen, serverParams)
//	if res.Skipped { ... }
//	input, err := flows.ProduceScreenInputParameters(res.FlowScreen, clientParams, res.ServerParameters, standard)
package clientflow
