package sink

import "github.com/matzehuels/sheetflow/pkg/paginate"

// RenderJSON renders the plan in its file form.
func RenderJSON(plan paginate.Plan) ([]byte, error) {
	return paginate.MarshalPlan(plan)
}
