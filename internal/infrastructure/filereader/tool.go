package filereader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"gopkg.in/yaml.v3"
)

const (
	ToolName      = "file_reader"
	previewLength = 500
)

var (
	operations = []string{"read", "search", "tenant_analysis"}

	supportedExtensions = map[string]bool{
		".csv": true, ".tsv": true, ".txt": true, ".json": true, ".yaml": true, ".yml": true,
	}

	ErrOutsideBaseDir = errors.New("path escapes the base directory")
)

type readParams struct {
	FilePath     string `json:"file_path" validate:"required"`
	Delimiter    string `json:"delimiter" validate:"omitempty,len=1"`
	Limit        int    `json:"limit" validate:"min=0"`
	TenantFormat bool   `json:"tenant_format"`
}

type searchParams struct {
	FilePath      string `json:"file_path" validate:"required"`
	SearchTerm    string `json:"search_term" validate:"required"`
	CaseSensitive bool   `json:"case_sensitive"`
	Delimiter     string `json:"delimiter" validate:"omitempty,len=1"`
}

type tenantParams struct {
	FilePath string `json:"file_path" validate:"required"`
}

// Tool reads local data files under a fixed base directory.
type Tool struct {
	baseDir string
}

func NewTool(baseDir string) (*Tool, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file base dir: %w", err)
	}
	return &Tool{baseDir: abs}, nil
}

func (t *Tool) Name() string { return ToolName }

func (t *Tool) Description() string {
	return "Read, search, or analyze CSV, TSV, text, JSON and YAML files, including tenant processing reports."
}

func (t *Tool) Operations() []string { return append([]string(nil), operations...) }

func (t *Tool) Process(ctx context.Context, operation string, params map[string]any) (any, error) {
	switch operation {
	case "read":
		var p readParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.read(p)
	case "search":
		var p searchParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		return t.search(p)
	case "tenant_analysis":
		var p tenantParams
		if err := decodeAndValidate(params, &p); err != nil {
			return nil, err
		}
		path, ext, err := t.resolve(p.FilePath)
		if err != nil {
			return nil, err
		}
		if ext != ".csv" {
			return nil, appErrors.NewAppError(appErrors.CodeInvalidArgument, "Tenant analysis only supports CSV files", nil)
		}
		return result(analyzeTenants(path))
	default:
		return nil, appErrors.NewAppError(appErrors.CodeUnsupportedOperation,
			fmt.Sprintf("Unsupported operation: %s. Available: %s", operation, strings.Join(operations, ", ")), nil)
	}
}

func (t *Tool) read(p readParams) (any, error) {
	path, ext, err := t.resolve(p.FilePath)
	if err != nil {
		return nil, err
	}

	switch ext {
	case ".csv", ".tsv":
		if p.TenantFormat || strings.Contains(strings.ToLower(filepath.Base(path)), "tenant") {
			return result(analyzeTenants(path))
		}
		return result(readTable(path, delimiterFor(ext, p.Delimiter), p.Limit))
	case ".json":
		var content any
		if err := decodeFile(path, func(b []byte) error { return json.Unmarshal(b, &content) }); err != nil {
			return nil, err
		}
		return map[string]any{"file_path": p.FilePath, "format": "json", "content": content}, nil
	case ".yaml", ".yml":
		var content any
		if err := decodeFile(path, func(b []byte) error { return yaml.Unmarshal(b, &content) }); err != nil {
			return nil, err
		}
		return map[string]any{"file_path": p.FilePath, "format": "yaml", "content": content}, nil
	default:
		return readText(path)
	}
}

func (t *Tool) search(p searchParams) (any, error) {
	path, ext, err := t.resolve(p.FilePath)
	if err != nil {
		return nil, err
	}

	match := matcher(p.SearchTerm, p.CaseSensitive)
	var matches any
	count := 0

	if ext == ".csv" || ext == ".tsv" {
		rows, err := searchTable(path, delimiterFor(ext, p.Delimiter), match)
		if err != nil {
			return nil, err
		}
		matches, count = rows, len(rows)
	} else {
		lines, err := searchLines(path, match)
		if err != nil {
			return nil, err
		}
		matches, count = lines, len(lines)
	}

	return map[string]any{
		"search_term": p.SearchTerm,
		"matches":     matches,
		"match_count": count,
	}, nil
}

// resolve maps name into the base directory and rejects anything outside it.
func (t *Tool) resolve(name string) (string, string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.baseDir, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(t.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid file path", ErrOutsideBaseDir)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return "", "", appErrors.NewAppError(appErrors.CodeInvalidArgument, fmt.Sprintf("Unsupported file type: %s", ext), nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", appErrors.NewAppError(appErrors.CodeInvalidArgument, fmt.Sprintf("File %s does not exist", name), nil)
		}
		return "", "", appErrors.NewAppError(appErrors.CodeInternal, "Failed to stat file", err)
	}
	if info.IsDir() {
		return "", "", appErrors.NewAppError(appErrors.CodeInvalidArgument, fmt.Sprintf("%s is a directory", name), nil)
	}
	return path, ext, nil
}

func readText(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(err)
	}
	content := string(raw)

	preview := content
	if utf8.RuneCountInString(content) > previewLength {
		preview = string([]rune(content)[:previewLength]) + "..."
	}

	return map[string]any{
		"content":    content,
		"line_count": len(strings.Split(content, "\n")),
		"word_count": len(strings.Fields(content)),
		"char_count": utf8.RuneCountInString(content),
		"preview":    preview,
	}, nil
}

func searchLines(path string, match func(string) bool) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(err)
	}

	matches := []map[string]any{}
	for i, line := range strings.Split(string(raw), "\n") {
		if match(line) {
			matches = append(matches, map[string]any{"line_number": i + 1, "content": strings.TrimSpace(line)})
		}
	}
	return matches, nil
}

func decodeFile(path string, decode func([]byte) error) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return readError(err)
	}
	if err := decode(raw); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Failed to parse file", err)
	}
	return nil
}

func matcher(term string, caseSensitive bool) func(string) bool {
	if caseSensitive {
		return func(s string) bool { return strings.Contains(s, term) }
	}
	lower := strings.ToLower(term)
	return func(s string) bool { return strings.Contains(strings.ToLower(s), lower) }
}

// result keeps a nil pointer from becoming a non-nil interface.
func result[T any](v *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func readError(err error) error {
	return appErrors.NewAppError(appErrors.CodeInternal, "Failed to read file", err)
}

func decodeAndValidate(params map[string]any, out any) error {
	if err := utils.DecodeParams(params, out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid parameters", err)
	}
	if err := utils.ValidateStruct(out); err != nil {
		return appErrors.NewAppError(appErrors.CodeInvalidArgument, "Invalid input", err)
	}
	return nil
}
