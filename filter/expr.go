package filter

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/haiblock/haiblock-go/haiblock"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression  string
	program     *vm.Program
	helperFuncs map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[cacheKey, CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}
	c.functions = strings.Join(slices.Sorted(maps.Keys(c.helperFuncs)), ",")

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	// functions names the helper set, part of every cache key
	functions   string
	cache       *lruCache[cacheKey, CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	key := cacheKey{functions: c.functions, expression: expression}
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // record fields are bound at run time
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression:  expression,
		program:     program,
		helperFuncs: c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(key, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Match evaluates the filter against a content record
func (f *exprFilter) Match(record *haiblock.ContentRecord) (bool, error) {
	if record == nil {
		return false, nil
	}

	result, err := expr.Run(f.program, createRuntimeEnvironment(f.helperFuncs, record))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			ContentID:  record.ID,
			Reason:     "failed to evaluate expression",
			Err:        err,
		}
	}

	// AsBool guarantees the result type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// defaultCompiler backs Compile and is shared by the CLI
var defaultCompiler = NewExprCompiler(WithCache(64))

// Compile compiles an expression with the shared caching compiler. An
// empty expression matches every record.
func Compile(expression string) (Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return matchAll{}, nil
	}
	return defaultCompiler.Compile(expression)
}

type matchAll struct{}

func (matchAll) Match(*haiblock.ContentRecord) (bool, error) { return true, nil }

// Select lazily yields the records of seq that match f. Upstream errors
// and evaluation errors are passed through and end the sequence.
func Select(seq iter.Seq2[*haiblock.ContentRecord, error], f Filter) iter.Seq2[*haiblock.ContentRecord, error] {
	return func(yield func(*haiblock.ContentRecord, error) bool) {
		for record, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := f.Match(record)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(record, nil) {
				return
			}
		}
	}
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)
	addHelperFunctions(funcs)
	return funcs
}

// Helper names must not collide with expr operators (contains, startsWith,
// endsWith, matches) or builtins (lower, upper, now, hasPrefix, ...); the
// builtins are available to expressions as they are.

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(time.DateOnly, dateStr)
		return t
	}
	// Case-insensitive string helpers
	env["hasText"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["beginsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsIn"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	// Size helpers
	env["kb"] = func(n int) int { return n << 10 }
	env["mb"] = func(n int) int { return n << 20 }
}

// createRuntimeEnvironment creates the runtime environment for filter
// evaluation: the compiler's helpers, custom ones included, plus the record.
func createRuntimeEnvironment(helpers map[string]any, record *haiblock.ContentRecord) map[string]any {
	env := make(map[string]any, len(helpers)+16)

	maps.Copy(env, helpers)

	env["Content"] = record

	// Record-specific helpers
	env["isStatus"] = createIsStatusFunc(record.Status)
	env["hasMetadata"] = createHasMetadataFunc(record.Metadata)
	env["metadata"] = createMetadataFunc(record.Metadata)
	env["passed"] = createPassedFunc(record.ValidationChecks)

	// Direct record properties for convenience
	env["ID"] = record.ID
	env["UserID"] = record.UserID
	env["Filename"] = record.Filename
	env["Status"] = record.Status.String()
	env["FileType"] = record.FileType
	env["FileSize"] = int(record.FileSize)
	env["CreatedAt"] = record.CreatedAt
	env["UpdatedAt"] = record.UpdatedAt
	env["Transformed"] = record.TransformedText != ""
	env["Metadata"] = record.Metadata

	return env
}

func createIsStatusFunc(status haiblock.ContentStatus) func(string) bool {
	return func(s string) bool {
		return haiblock.ParseContentStatus(s) == status
	}
}

func createHasMetadataFunc(metadata map[string]any) func(string) bool {
	return func(key string) bool {
		_, ok := metadata[key]
		return ok
	}
}

func createMetadataFunc(metadata map[string]any) func(string) string {
	return func(key string) string {
		v, ok := metadata[key]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
}

func createPassedFunc(checks map[string]bool) func(string) bool {
	return func(name string) bool {
		return checks[name]
	}
}
