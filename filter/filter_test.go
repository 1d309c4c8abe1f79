package filter

import (
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haiblock/haiblock-go/haiblock"
)

func testRecord() *haiblock.ContentRecord {
	return &haiblock.ContentRecord{
		ID:              "c1",
		UserID:          "u1",
		Filename:        "Company-Overview.pdf",
		Status:          haiblock.StatusTransformed,
		CreatedAt:       time.Now().AddDate(0, 0, -10),
		FileSize:        3 << 20,
		FileType:        "application/pdf",
		TransformedText: "# Overview",
		Metadata: map[string]any{
			"category": "company-info",
			"priority": 2,
		},
		ValidationChecks: map[string]bool{"size": true, "format": false},
	}
}

func TestCompile(t *testing.T) {
	compiler := NewExprCompiler()

	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `Status == "transformed"`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasText(Filename, "unclosed`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `isStatus("transformed") and FileSize > mb(1) and daysSince(CreatedAt) < 30`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := compiler.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.ErrorAs(t, err, &compErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestMatch(t *testing.T) {
	record := testRecord()

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{name: "status equals", expression: `Status == "transformed"`, want: true},
		{name: "status alias", expression: `isStatus("processed")`, want: true},
		{name: "status mismatch", expression: `isStatus("uploaded")`, want: false},
		{name: "filename has text", expression: `hasText(Filename, "overview")`, want: true},
		{name: "extension ignores case", expression: `endsIn(Filename, ".PDF")`, want: true},
		{name: "prefix ignores case", expression: `beginsWith(Filename, "company")`, want: true},
		{name: "contains operator", expression: `Filename contains "Overview"`, want: true},
		{name: "endsWith operator is case sensitive", expression: `Filename endsWith ".PDF"`, want: false},
		{name: "lower builtin", expression: `lower(Filename) == "company-overview.pdf"`, want: true},
		{name: "size", expression: `FileSize >= mb(3)`, want: true},
		{name: "age", expression: `CreatedAt < daysAgo(7)`, want: true},
		{name: "age negative", expression: `daysSince(CreatedAt) < 7`, want: false},
		{name: "metadata value", expression: `metadata("category") == "company-info"`, want: true},
		{name: "metadata number", expression: `metadata("priority") == "2"`, want: true},
		{name: "metadata missing", expression: `hasMetadata("source")`, want: false},
		{name: "validation check", expression: `passed("size") and not passed("format")`, want: true},
		{name: "transformed flag", expression: `Transformed`, want: true},
		{name: "record access", expression: `Content.UserID == "u1"`, want: true},
		{name: "combined", expression: `FileType == "application/pdf" or Status == "failed"`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewExprCompiler().Compile(tt.expression)
			require.NoError(t, err)

			got, err := f.Match(record)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_EvaluationError(t *testing.T) {
	f, err := NewExprCompiler().Compile(`Content.Nope.Deeper == 1`)
	require.NoError(t, err)

	_, err = f.Match(testRecord())
	require.Error(t, err)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "c1", evalErr.ContentID)
}

func TestMatch_NilRecord(t *testing.T) {
	f, err := NewExprCompiler().Compile(`true`)
	require.NoError(t, err)

	ok, err := f.Match(nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompile_EmptyMatchesAll(t *testing.T) {
	f, err := Compile("")
	require.NoError(t, err)

	ok, err := f.Match(testRecord())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`Status == "uploaded"`)
	require.NoError(t, err)
	again, err := compiler.Compile(`  Status == "uploaded"  `)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, compiler.Size())

	_, err = compiler.Compile(`FileSize > 0`)
	require.NoError(t, err)
	_, err = compiler.Compile(`FileSize > 1`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.Size())

	// the first expression was evicted
	evicted, err := compiler.Compile(`Status == "uploaded"`)
	require.NoError(t, err)
	assert.NotSame(t, first, evicted)

	compiler.Clear()
	assert.Zero(t, compiler.Size())
}

func TestWithCustomFunctions(t *testing.T) {
	compiler := NewExprCompiler(WithCustomFunctions(map[string]any{
		"isPDF": func(fileType string) bool { return fileType == "application/pdf" },
	}))

	f, err := compiler.Compile(`isPDF(FileType)`)
	require.NoError(t, err)

	ok, err := f.Match(testRecord())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHelperFunctions(t *testing.T) {
	// One expression per helper; every registered helper must be listed so a
	// name that clashes with expr syntax fails here.
	calls := map[string]string{
		"daysSince":  `daysSince(CreatedAt) >= 9`,
		"daysAgo":    `CreatedAt < daysAgo(1)`,
		"monthsAgo":  `CreatedAt > monthsAgo(1)`,
		"parseDate":  `CreatedAt > parseDate("2000-01-01")`,
		"hasText":    `hasText(Filename, "OVERVIEW")`,
		"beginsWith": `beginsWith(Filename, "company")`,
		"endsIn":     `endsIn(Filename, ".pdf")`,
		"kb":         `FileSize > kb(1)`,
		"mb":         `FileSize == mb(3)`,
	}

	helpers := createHelperFunctions()
	for name := range helpers {
		assert.Contains(t, calls, name, "helper %q has no test expression", name)
	}

	compiler := NewExprCompiler()
	for name, expression := range calls {
		t.Run(name, func(t *testing.T) {
			require.Contains(t, helpers, name)

			f, err := compiler.Compile(expression)
			require.NoError(t, err)

			ok, err := f.Match(testRecord())
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestCache_KeyIncludesFunctions(t *testing.T) {
	plain := NewExprCompiler(WithCache(4)).(*exprCompiler)
	custom := NewExprCompiler(WithCache(4), WithCustomFunctions(map[string]any{
		"isPDF": func(string) bool { return true },
	})).(*exprCompiler)

	assert.NotEqual(t, plain.functions, custom.functions)
	assert.Contains(t, custom.functions, "isPDF")
}

func TestLRUCache(t *testing.T) {
	c := newLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// touching a makes b the eviction candidate
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Put("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Zero(t, c.Size())
}

func seqOf(records []*haiblock.ContentRecord, tail error) iter.Seq2[*haiblock.ContentRecord, error] {
	return func(yield func(*haiblock.ContentRecord, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(nil, tail)
		}
	}
}

func TestSelect(t *testing.T) {
	records := []*haiblock.ContentRecord{
		{ID: "a", Status: haiblock.StatusUploaded},
		{ID: "b", Status: haiblock.StatusTransformed},
		{ID: "c", Status: haiblock.StatusTransformed},
	}
	f, err := Compile(`Status == "transformed"`)
	require.NoError(t, err)

	var ids []string
	for record, err := range Select(seqOf(records, nil), f) {
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}
	assert.Equal(t, []string{"b", "c"}, ids)
}

func TestSelect_PassesErrors(t *testing.T) {
	boom := errors.New("page 2 failed")
	records := []*haiblock.ContentRecord{{ID: "a", Status: haiblock.StatusUploaded}}

	var gotErr error
	count := 0
	for _, err := range Select(seqOf(records, boom), matchAll{}) {
		if err != nil {
			gotErr = err
			continue
		}
		count++
	}
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, gotErr, boom)
}
