package episodesvc

import (
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/epiview/epiview/internal/catalog"
)

// celFilter wraps a compiled CEL program evaluated per episode. When
// disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("ordinal", cel.IntType),
		cel.Variable("category", cel.IntType),
		cel.Variable("description", cel.StringType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against one episode. Evaluation
// errors exclude the episode.
func (f celFilter) Eval(e catalog.Episode) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]interface{}{
		"id":          e.ID,
		"title":       e.Title,
		"ordinal":     int64(e.Ordinal),
		"category":    int64(e.Category),
		"description": e.Description,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
