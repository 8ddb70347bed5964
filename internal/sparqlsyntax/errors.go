package sparqlsyntax

import "fmt"

var errNoPatterns = fmt.Errorf("sparqlsyntax: WHERE clause has no triple patterns")

func unboundTemplateVarError(name string) error {
	return fmt.Errorf("sparqlsyntax: INSERT template references unbound variable ?%s", name)
}
