package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/mangle/ast"
)

// MangleAtom represents a Mangle name constant (starting with /).
// This explicit type avoids ambiguity between strings and atoms.
type MangleAtom string

// Fact represents a single logical fact emitted to the per-run fact log.
// Audit consumers query these with a Datalog engine instead of re-parsing
// the JSONL trace records.
type Fact struct {
	Predicate string
	Args      []interface{}
}

func isValidNameConstant(v string) bool {
	if !strings.HasPrefix(v, "/") {
		return false
	}
	// Whitespace is never valid in Mangle name constants.
	if strings.ContainsAny(v, " \t\n\r") {
		return false
	}
	// Name constants here are short tags like /household or /approved;
	// anything path-shaped is a string constant.
	if strings.Count(v, "/") > 2 {
		return false
	}
	_, err := ast.Name(v)
	return err == nil
}

// String returns the Datalog string representation of the fact.
func (f Fact) String() string {
	var args []string
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case MangleAtom:
			args = append(args, string(v))
		case string:
			if isValidNameConstant(v) {
				args = append(args, v)
			} else {
				args = append(args, fmt.Sprintf("%q", v))
			}
		case int:
			args = append(args, fmt.Sprintf("%d", v))
		case int64:
			args = append(args, fmt.Sprintf("%d", v))
		case float64:
			args = append(args, fmt.Sprintf("%f", v))
		case bool:
			if v {
				args = append(args, "/true")
			} else {
				args = append(args, "/false")
			}
		default:
			args = append(args, fmt.Sprintf("%v", v))
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// ToAtom converts a Fact to a Mangle AST atom. The audit writer calls this
// before appending a fact line so the fact log is guaranteed queryable.
func (f Fact) ToAtom() (ast.Atom, error) {
	var terms []ast.BaseTerm
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case MangleAtom:
			s := string(v)
			if !strings.HasPrefix(s, "/") {
				terms = append(terms, ast.String(s))
				continue
			}
			c, err := ast.Name(s)
			if err != nil {
				return ast.Atom{}, err
			}
			terms = append(terms, c)
		case string:
			if isValidNameConstant(v) {
				c, _ := ast.Name(v)
				terms = append(terms, c)
			} else {
				terms = append(terms, ast.String(v))
			}
		case int:
			terms = append(terms, ast.Number(int64(v)))
		case int64:
			terms = append(terms, ast.Number(v))
		case float64:
			// ast.Number is integer-valued in v0.4.0; scale to centi-units.
			terms = append(terms, ast.Number(int64(v*100)))
		case time.Time:
			terms = append(terms, ast.Number(v.UnixNano()))
		case bool:
			if v {
				terms = append(terms, ast.TrueConstant)
			} else {
				terms = append(terms, ast.FalseConstant)
			}
		default:
			terms = append(terms, ast.String(fmt.Sprintf("%v", v)))
		}
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}
