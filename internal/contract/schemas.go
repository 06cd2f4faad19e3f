package contract

import "github.com/getkin/kin-openapi/openapi3"

// strict closes a schema against unknown additional fields and marks the
// given properties required.
func strict(s *openapi3.Schema, required ...string) *openapi3.Schema {
	s.Required = required
	s.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}
	return s
}

func runIDSchema() *openapi3.Schema {
	return openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(64).WithPattern(`^[A-Za-z0-9_-]+$`)
}

func submitRequestSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("repo_url", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(512).WithPattern(`^https?://`)).
		WithProperty("team_name", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(100)).
		WithProperty("leader_name", openapi3.NewStringSchema().WithMinLength(1).WithMaxLength(100)),
		"repo_url", "team_name", "leader_name")
}

func submitResponseSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("branch_name", openapi3.NewStringSchema().WithPattern(`^[A-Z0-9_]+_AI_Fix$`)).
		WithProperty("status", openapi3.NewStringSchema().WithEnum("queued")).
		WithProperty("socket_room", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("fingerprint", openapi3.NewStringSchema().WithPattern(`^[0-9a-f]{64}$`)),
		"run_id", "branch_name", "status", "socket_room", "fingerprint")
}

func duplicateResponseSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("branch_name", openapi3.NewStringSchema()).
		WithProperty("status", openapi3.NewStringSchema().WithEnum("queued", "running")).
		WithProperty("socket_room", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("message", openapi3.NewStringSchema()),
		"run_id", "branch_name", "status", "socket_room", "message")
}

func scoreBreakdownSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("base", openapi3.NewFloat64Schema()).
		WithProperty("speed_bonus", openapi3.NewFloat64Schema()).
		WithProperty("efficiency_penalty", openapi3.NewFloat64Schema()).
		WithProperty("total", openapi3.NewFloat64Schema().WithMin(0)),
		"base", "speed_bonus", "efficiency_penalty", "total")
}

func fixSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("file", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("bug_type", openapi3.NewStringSchema().
			WithEnum("LINTING", "SYNTAX", "LOGIC", "TYPE_ERROR", "IMPORT", "INDENTATION")).
		WithProperty("line", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("status", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("confidence", openapi3.NewFloat64Schema().WithMin(0).WithMax(1)).
		WithProperty("commit_sha", openapi3.NewStringSchema().WithNullable()),
		"file", "bug_type", "line", "status", "confidence")
}

func ciEntrySchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("iteration", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("timestamp", openapi3.NewStringSchema()),
		"iteration", "status")
}

func resultsSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("final_status", openapi3.NewStringSchema().WithEnum("passed", "failed", "quarantined")).
		WithProperty("score", scoreBreakdownSchema()).
		WithProperty("fixes", openapi3.NewArraySchema().WithItems(fixSchema())).
		WithProperty("ci_log", openapi3.NewArraySchema().WithItems(ciEntrySchema())).
		WithProperty("total_time_secs", openapi3.NewFloat64Schema().WithMin(0)),
		"run_id", "final_status", "score", "fixes", "ci_log", "total_time_secs")
}

func thoughtSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("node", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("step_index", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("timestamp", openapi3.NewStringSchema()),
		"run_id", "node", "message", "step_index")
}

func fixAppliedSchema() *openapi3.Schema {
	s := fixSchema()
	s.WithProperty("run_id", runIDSchema())
	s.Required = append([]string{"run_id"}, s.Required...)
	return s
}

func ciUpdateSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("iteration", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("status", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("regression", openapi3.NewBoolSchema()).
		WithProperty("timestamp", openapi3.NewStringSchema()),
		"run_id", "iteration", "status", "regression")
}

func telemetryTickSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("container_id", openapi3.NewStringSchema()).
		WithProperty("cpu_pct", openapi3.NewFloat64Schema().WithMin(0)).
		WithProperty("mem_mb", openapi3.NewFloat64Schema().WithMin(0)).
		WithProperty("timestamp", openapi3.NewStringSchema()),
		"run_id", "container_id", "cpu_pct", "mem_mb")
}

func runCompleteSchema() *openapi3.Schema {
	score := openapi3.NewObjectSchema()
	score.AdditionalProperties = openapi3.AdditionalProperties{
		Schema: openapi3.NewSchemaRef("", openapi3.NewFloat64Schema()),
	}

	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("final_status", openapi3.NewStringSchema().WithEnum("passed", "failed", "quarantined")).
		WithProperty("score", score).
		WithProperty("total_time_secs", openapi3.NewFloat64Schema().WithMin(0)).
		WithProperty("pdf_url", openapi3.NewStringSchema()),
		"run_id", "final_status", "score", "total_time_secs")
}

func statusUpdateSchema() *openapi3.Schema {
	return strict(openapi3.NewObjectSchema().
		WithProperty("run_id", runIDSchema()).
		WithProperty("status", openapi3.NewStringSchema().
			WithEnum("queued", "running", "passed", "failed", "quarantined")).
		WithProperty("current_node", openapi3.NewStringSchema()).
		WithProperty("iteration", openapi3.NewIntegerSchema().WithMin(0)),
		"run_id", "status", "current_node", "iteration")
}
