package run

import (
	"fmt"
	"strings"

	"github.com/specdriven/sdd/internal/models"
)

// Prompt generates the kind-specific instruction text for a task. It is a
// pure function of the task's kind and identity, invoked at the start
// transition; the kind set is closed, so a plain switch is enough.
func Prompt(task *models.TaskExecution) string {
	var body string

	switch task.Kind {
	case models.KindDB:
		body = `Design and implement the data layer for this feature.

- Define the schema or storage structures the feature needs.
- Write migrations that apply cleanly to an existing database.
- Cover the boundary values the specification lists (empty, max, off-by-one).`
	case models.KindAPI:
		body = `Implement the API surface for this feature.

- Follow the input/output examples in the specification exactly.
- Return every exception response the specification lists, with the documented status codes.
- Validate inputs at the boundary; reject malformed requests early.`
	case models.KindUI:
		body = `Implement the user-facing surface for this feature.

- Mirror the input/output examples from the specification.
- Surface API errors to the user in actionable form.
- Keep state handling out of the view layer.`
	case models.KindIntegration:
		body = `Wire this feature end to end.

- Connect the data layer, API and UI built in the preceding tasks.
- Walk every acceptance scenario from the specification manually once.
- Check configuration, startup ordering and teardown.`
	case models.KindTest:
		body = `Write the test suite for this feature.

- One test per input/output example in the specification.
- One test per boundary value and per exception response.
- One end-to-end test per acceptance scenario.`
	case models.KindReview:
		body = `Review the completed work for this feature.

- Verify every acceptance scenario is covered by implementation and tests.
- Check error handling against the specification's exception responses.
- Record an audit score when marking this task complete.`
	default:
		body = "Execute this task according to the feature specification."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", task.Name)
	fmt.Fprintf(&sb, "Task `%s` (%s) for feature `%s`.\n\n", task.TaskID, task.Kind, task.FeatureID)
	sb.WriteString(body)
	sb.WriteString("\n\nWhen finished, mark the task complete with the list of files you touched.\n")
	return sb.String()
}
